package models

// Post is the canonical content item. Every upstream shape (archive API or
// RSS feed) is normalized into this form before it enters the cache or is
// handed to search ranking.
type Post struct {
	Slug               string       `json:"slug"`
	URL                string       `json:"url"`
	Title              string       `json:"title"`
	Description        string       `json:"description"`
	Excerpt            *string      `json:"excerpt"`
	BodyHTML           *string      `json:"body_html"`
	ReadingTimeMinutes int          `json:"reading_time_minutes"`
	AudioURL           *string      `json:"audio_url"`
	Date               string       `json:"date"`
	Likes              int          `json:"likes"`
	Paywall            bool         `json:"paywall"`
	CoverImage         CoverImage   `json:"cover_image"`
	CoverImagePalette  ColorPalette `json:"cover_image_color_palette"`
	Author             string       `json:"author"`
	AuthorImage        AuthorImage  `json:"author_image"`
}

// CoverImage holds the original cover URL plus derived CDN resize variants.
type CoverImage struct {
	Original *string `json:"original"`
	OG       *string `json:"og"`     // 1200x630
	Small    *string `json:"small"`  // 150px
	Medium   *string `json:"medium"` // 424px
	Large    *string `json:"large"`  // 848px
}

// ColorPalette entries are present only when the upstream record carried a
// 3-channel RGB triple; they are never defaulted.
type ColorPalette struct {
	Vibrant      *string `json:"vibrant"`
	LightVibrant *string `json:"light_vibrant"`
	DarkVibrant  *string `json:"dark_vibrant"`
	Muted        *string `json:"muted"`
	LightMuted   *string `json:"light_muted"`
	DarkMuted    *string `json:"dark_muted"`
}

type AuthorImage struct {
	Original *string `json:"original"`
	Small    *string `json:"small"`  // 32px
	Medium   *string `json:"medium"` // 72px
	Large    *string `json:"large"`  // 192px
}
