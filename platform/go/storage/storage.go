package storage

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/photohub/photohub-saas/platform/go/tenant"
)

// ObjectLocation describes where a blob should live.
type ObjectLocation struct {
	Bucket   string
	FullPath string
}

var (
	nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)
	slugPattern  = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
)

// TenantPrefix returns `photographers/<shortId>/` for the scope's tenant.
func TenantPrefix(scope tenant.Scope) (string, error) {
	if !scope.Valid() {
		return "", fmt.Errorf("tenant scope is required")
	}
	return "photographers/" + tenant.ShortID(scope.TenantID) + "/", nil
}

// ResolveObjectLocation combines the tenant prefix and a tenant-relative key into a bucket/path pair.
func ResolveObjectLocation(scope tenant.Scope, bucket string, logicalKey string) (ObjectLocation, error) {
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return ObjectLocation{}, fmt.Errorf("bucket is required")
	}
	key := strings.TrimPrefix(strings.TrimSpace(logicalKey), "/")
	if key == "" {
		return ObjectLocation{}, fmt.Errorf("logical key is required")
	}

	prefix, err := TenantPrefix(scope)
	if err != nil {
		return ObjectLocation{}, err
	}

	return ObjectLocation{Bucket: bucket, FullPath: prefix + key}, nil
}

// StudioImageKey builds the tenant-relative key for a studio image upload.
// The file name is slugified and prefixed with a random id so repeated uploads never collide.
func StudioImageKey(studioID int64, fileName string) (string, error) {
	if studioID <= 0 {
		return "", fmt.Errorf("studio id is required")
	}
	return fmt.Sprintf("studios/%d/%s", studioID, uploadName(fileName)), nil
}

// ReferenceImageKey builds the tenant-relative key for a reference image. References are
// keyed before their row exists, so the key carries no id.
func ReferenceImageKey(fileName string) (string, error) {
	if strings.TrimSpace(fileName) == "" {
		return "", fmt.Errorf("file name is required")
	}
	return "references/" + uploadName(fileName), nil
}

func uploadName(fileName string) string {
	name := strings.TrimSpace(fileName)
	ext := strings.ToLower(path.Ext(name))
	slug := Slugify(strings.TrimSuffix(name, path.Ext(name)))
	if slug == "" {
		slug = "image"
	}
	if ext != "" && !slugPattern.MatchString(strings.TrimPrefix(ext, ".")) {
		ext = ""
	}
	return uuid.NewString()[:8] + "-" + slug + ext
}

// Slugify lowercases the input and collapses every run of non alphanumeric characters into a hyphen.
func Slugify(input string) string {
	s := nonSlugChars.ReplaceAllString(strings.ToLower(strings.TrimSpace(input)), "-")
	return strings.Trim(s, "-")
}
