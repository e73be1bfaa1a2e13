package flags

func makeFeature(p *bool) {}

func makeIntFeature(x int) {}

func toggle() {
	var on bool
	makeFeature(&on)
	if on { // want "branch on feature flag \\(A\\)"
		println("on")
	}
	if !on { // want "branch on feature flag"
		println("off")
	}
}

func compare() {
	level := 0
	makeIntFeature(level)
	if level == 0 { // want "branch on feature flag \\(!A\\)"
		println("level not set")
	}
}

func unrelated(n int) {
	if n == 0 {
		println("zero")
	}
}

func closure() func() {
	return func() {
		var on bool
		makeFeature(&on)
		if on { // want "branch on feature flag"
			println("in closure")
		}
	}
}
