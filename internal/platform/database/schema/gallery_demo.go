package schema

// GalleryDemoTable represents the 'gallery.demo' table
type GalleryDemoTable struct {
	Table                          string
	ID                             string
	ComponentID                    string
	UserID                         string
	Name                           string
	DemoSlug                       string
	DemoCodeURL                    string
	DemoDependencies               string
	DemoDirectRegistryDependencies string
	PreviewURL                     string
	VideoURL                       string
	CompiledCSS                    string
	FTS                            string
	CreatedAt                      string
	UpdatedAt                      string
}

// GalleryDemo is the schema definition for gallery.demo
var GalleryDemo = GalleryDemoTable{
	Table:                          "gallery.demo",
	ID:                             "id",
	ComponentID:                    "componentid",
	UserID:                         "userid",
	Name:                           "name",
	DemoSlug:                       "demoslug",
	DemoCodeURL:                    "democodeurl",
	DemoDependencies:               "demodependencies",
	DemoDirectRegistryDependencies: "demodirectregistrydependencies",
	PreviewURL:                     "previewurl",
	VideoURL:                       "videourl",
	CompiledCSS:                    "compiledcss",
	FTS:                            "fts",
	CreatedAt:                      "createdat",
	UpdatedAt:                      "updatedat",
}

// Columns returns all standard column names
func (t GalleryDemoTable) Columns() []string {
	return []string{
		t.ID, t.ComponentID, t.UserID, t.Name, t.DemoSlug, t.DemoCodeURL,
		t.DemoDependencies, t.DemoDirectRegistryDependencies, t.PreviewURL,
		t.VideoURL, t.CompiledCSS, t.CreatedAt, t.UpdatedAt,
	}
}
