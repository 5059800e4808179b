package schema

// GalleryComponentTable represents the 'gallery.component' table
type GalleryComponentTable struct {
	Table                      string
	ID                         string
	UserID                     string
	Name                       string
	Registry                   string
	ComponentSlug              string
	ComponentNames             string
	Description                string
	License                    string
	WebsiteURL                 string
	CodeURL                    string
	TailwindConfigURL          string
	GlobalCSSURL               string
	Dependencies               string
	DemoDependencies           string
	DirectRegistryDependencies string
	IsPublic                   string
	LikesCount                 string
	DownloadsCount             string
	CreatedAt                  string
	UpdatedAt                  string
}

// GalleryComponent is the schema definition for gallery.component
var GalleryComponent = GalleryComponentTable{
	Table:                      "gallery.component",
	ID:                         "id",
	UserID:                     "userid",
	Name:                       "name",
	Registry:                   "registry",
	ComponentSlug:              "componentslug",
	ComponentNames:             "componentnames",
	Description:                "description",
	License:                    "license",
	WebsiteURL:                 "websiteurl",
	CodeURL:                    "codeurl",
	TailwindConfigURL:          "tailwindconfigurl",
	GlobalCSSURL:               "globalcssurl",
	Dependencies:               "dependencies",
	DemoDependencies:           "demodependencies",
	DirectRegistryDependencies: "directregistrydependencies",
	IsPublic:                   "ispublic",
	LikesCount:                 "likescount",
	DownloadsCount:             "downloadscount",
	CreatedAt:                  "createdat",
	UpdatedAt:                  "updatedat",
}

// Columns returns all standard column names
func (t GalleryComponentTable) Columns() []string {
	return []string{
		t.ID, t.UserID, t.Name, t.Registry, t.ComponentSlug, t.ComponentNames,
		t.Description, t.License, t.WebsiteURL, t.CodeURL, t.TailwindConfigURL,
		t.GlobalCSSURL, t.Dependencies, t.DemoDependencies, t.DirectRegistryDependencies,
		t.IsPublic, t.LikesCount, t.DownloadsCount, t.CreatedAt, t.UpdatedAt,
	}
}
