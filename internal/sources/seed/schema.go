package seed

// File is the top-level structure of a seed file.
type File struct {
	Locations []Location `yaml:"locations"`
	Content   []Item     `yaml:"content"`
}

// Location is a named anchor point. Seeded pulses land near it.
type Location struct {
	Name string  `yaml:"name"`
	Lat  float64 `yaml:"lat"`
	Lng  float64 `yaml:"lng"`
}

// Item is a movie or topic to seed pulses for. Movies carry their catalog
// id, which becomes the object's external id.
type Item struct {
	Type     string                 `yaml:"type"`
	ID       string                 `yaml:"id,omitempty"`
	Title    string                 `yaml:"title"`
	Metadata map[string]interface{} `yaml:"metadata,omitempty"`
}
