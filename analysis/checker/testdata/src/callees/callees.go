package callees

type registry struct{}

func (registry) Enabled(flag *bool) {}

func makeFeature(p *bool) {}

func enabled() {
	var r registry
	var beta bool
	r.Enabled(&beta)
	if beta { // want "branch on feature flag"
		println("beta")
	}
}

func notACallee() {
	var on bool
	makeFeature(&on)
	if on {
		println("on")
	}
}
