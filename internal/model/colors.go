package model

import "strconv"

// Material palette the server accepts for company display colors, as
// "name-shade" codes plus plain black and white.
var colorNames = []string{
	"red", "pink", "purple", "deep-purple", "indigo", "blue",
	"light-blue", "cyan", "teal", "green", "light-green", "lime",
	"yellow", "amber", "orange", "deep-orange", "brown", "grey",
	"blue-grey",
}

var colorShades = []int{50, 100, 200, 300, 400, 500, 600, 700, 800, 900}

func ColorOptions() []string {
	opts := []string{"black", "white"}
	for _, name := range colorNames {
		for _, shade := range colorShades {
			opts = append(opts, name+"-"+strconv.Itoa(shade))
		}
	}
	return opts
}

var colorSet = func() map[string]struct{} {
	set := make(map[string]struct{})
	for _, opt := range ColorOptions() {
		set[opt] = struct{}{}
	}
	return set
}()

func ValidColor(code string) bool {
	_, ok := colorSet[code]
	return ok
}
