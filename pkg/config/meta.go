package config

// Meta holds application details
type Meta struct {
	ID      string
	Name    string
	Desc    string
	URL     string
	Author  string
	Version string
}
