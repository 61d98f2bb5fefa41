// Package domain holds the reference entities clients need to build the
// login form: the site and department lists behind the natural login key.
package domain

// Site is one operational site.
type Site struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Department is one department within a site.
type Department struct {
	ID     int64  `json:"id"`
	SiteID int64  `json:"site_id"`
	Name   string `json:"name"`
}
