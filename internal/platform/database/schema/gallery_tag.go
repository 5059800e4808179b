package schema

// GalleryTagTable represents the 'gallery.tag' table
type GalleryTagTable struct {
	Table string
	ID    string
	Name  string
	Slug  string
}

// GalleryTag is the schema definition for gallery.tag
var GalleryTag = GalleryTagTable{
	Table: "gallery.tag",
	ID:    "id",
	Name:  "name",
	Slug:  "slug",
}

func (t GalleryTagTable) Columns() []string {
	return []string{t.ID, t.Name, t.Slug}
}

// GalleryDemoTagTable represents the 'gallery.demotag' junction table
type GalleryDemoTagTable struct {
	Table  string
	DemoID string
	TagID  string
}

// GalleryDemoTag is the schema definition for gallery.demotag
var GalleryDemoTag = GalleryDemoTagTable{
	Table:  "gallery.demotag",
	DemoID: "demoid",
	TagID:  "tagid",
}
