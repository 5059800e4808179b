package schema

// GalleryAnalyticsTable represents the 'gallery.analytics' activity log
type GalleryAnalyticsTable struct {
	Table        string
	ID           string
	ComponentID  string
	ActivityType string
	CreatedAt    string
}

// GalleryAnalytics is the schema definition for gallery.analytics
var GalleryAnalytics = GalleryAnalyticsTable{
	Table:        "gallery.analytics",
	ID:           "id",
	ComponentID:  "componentid",
	ActivityType: "activitytype",
	CreatedAt:    "createdat",
}

// GalleryAnalyticsSummary is the materialized per-component rollup.
var GalleryAnalyticsSummary = struct {
	Table        string
	ComponentID  string
	ActivityType string
	Count        string
}{
	Table:        "gallery.mv_component_analytics",
	ComponentID:  "componentid",
	ActivityType: "activitytype",
	Count:        "activitycount",
}
