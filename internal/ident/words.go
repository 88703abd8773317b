package ident

// Word pools for memorable room names.
var adjectives = []string{
	"amber", "brave", "calm", "dusty", "eager", "fuzzy", "gentle", "happy", "icy", "jolly",
	"keen", "lucky", "mellow", "nimble", "olive", "plucky", "quiet", "rapid", "sunny", "tidy",
	"urban", "vivid", "witty", "young", "zesty", "bold", "crisp", "deep", "early", "fresh",
}

var nouns = []string{
	"anchor", "beacon", "canyon", "delta", "ember", "falcon", "garden", "harbor", "island", "jungle",
	"kettle", "lantern", "meadow", "nebula", "orchard", "pebble", "quartz", "river", "summit", "tundra",
	"valley", "willow", "yonder", "zephyr", "comet", "lagoon", "maple", "otter", "prairie", "rocket",
}
