package youtube

import "regexp"

var videoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`[?&]v=([a-zA-Z0-9_-]{6,})`),
	regexp.MustCompile(`youtu\.be/([a-zA-Z0-9_-]{6,})`),
	regexp.MustCompile(`/embed/([a-zA-Z0-9_-]{6,})`),
}

// VideoID extracts the video identifier from a watch, short-link, or embed
// URL. Returns "" when the URL carries none.
func VideoID(videoURL string) string {
	for _, p := range videoIDPatterns {
		if m := p.FindStringSubmatch(videoURL); m != nil {
			return m[1]
		}
	}
	return ""
}

// Thumbnail is the stable high-quality thumbnail URL for a video.
func Thumbnail(videoID string) string {
	return "https://img.youtube.com/vi/" + videoID + "/hqdefault.jpg"
}
