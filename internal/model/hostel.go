package model

// HostelDetails holds the single row of general hostel content shown on
// public pages.
type HostelDetails struct {
	ID              uint64   `json:"id"`
	Name            string   `json:"name"`
	GeneralVideoURL string   `json:"general_video_url"`
	GeneralImages   []string `json:"general_images"`
	Amenities       []string `json:"amenities"`
}
