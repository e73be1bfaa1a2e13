package defaults

func makeFeature(p *bool) {}

func makeIntFeature(x int) {}

func toggle() {
	var on bool
	makeFeature(&on)
	if on { // want "branch on feature flag \\(A\\)"
		println("on")
	}
}

func notACallee() {
	level := 0
	makeIntFeature(level)
	if level == 0 {
		println("makeIntFeature is not a feature callee by default")
	}
}
