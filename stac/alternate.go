package stac

import (
	"net/url"
	"strings"
)

// s3Domain identifies object storage hrefs that have an s3:// equivalent
const s3Domain = "amazonaws.com"

// S3Alternate returns the s3:// uri of an https object storage href
// (https://bucket.s3.amazonaws.com/key => s3://bucket/key).
// ok is false if href is not served by object storage.
func S3Alternate(href string) (string, bool) {
	u, err := url.Parse(href)
	if err != nil || !strings.Contains(u.Host, s3Domain) {
		return "", false
	}
	bucket, _, _ := strings.Cut(u.Host, ".")
	return "s3://" + bucket + u.Path, true
}

// AddAlternateAssets tags every object storage asset as the "HTTPS" variant and adds
// its "S3" alternate. It returns the schema of the alternate-assets extension.
func AddAlternateAssets(assets map[string]*Asset) string {
	for _, a := range assets {
		s3, ok := S3Alternate(a.Href)
		if !ok {
			continue
		}
		a.Set("alternate:name", "HTTPS")
		a.Set("alternate", map[string]any{
			"s3": map[string]any{
				"href":           s3,
				"alternate:name": "S3",
			},
		})
	}
	return ExtensionAlternate
}
