package devtoken

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestBuildUnsignedFirebaseToken(t *testing.T) {
	now := time.Unix(1_700_000_000, 0).UTC()

	token, err := BuildUnsignedFirebaseToken(Params{
		ProjectID:      "local-photohub",
		UserID:         "firebase-uid-1",
		PhotographerID: "9a7c0a4e-2f4e-4a53-9b7c-0e6f4f2d1a11",
		Email:          "anna@example.com",
		Name:           "Anna",
		EmailVerified:  true,
		IsAdmin:        true,
		ExpiresIn:      time.Hour,
	}, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	header, payload := splitToken(t, token)
	if got, want := header["alg"], "none"; got != want {
		t.Fatalf("header alg = %v, want %v", got, want)
	}

	if got, want := payload["iss"], "https://securetoken.google.com/local-photohub"; got != want {
		t.Errorf("iss = %v, want %v", got, want)
	}
	if got, want := payload["aud"], "local-photohub"; got != want {
		t.Errorf("aud = %v, want %v", got, want)
	}
	if got, want := payload["sub"], "firebase-uid-1"; got != want {
		t.Errorf("sub = %v, want %v", got, want)
	}
	if got, want := payload["photographerId"], "9a7c0a4e-2f4e-4a53-9b7c-0e6f4f2d1a11"; got != want {
		t.Errorf("photographerId = %v, want %v", got, want)
	}
	if got, want := payload["isAdmin"], true; got != want {
		t.Errorf("isAdmin = %v, want %v", got, want)
	}
	if got, want := payload["exp"], float64(now.Add(time.Hour).Unix()); got != want {
		t.Errorf("exp = %v, want %v", got, want)
	}

	firebaseClaim, ok := payload["firebase"].(map[string]interface{})
	if !ok {
		t.Fatalf("firebase claim missing or invalid type: %T", payload["firebase"])
	}
	if got, want := firebaseClaim["sign_in_provider"], "password"; got != want {
		t.Errorf("firebase.sign_in_provider = %v, want %v", got, want)
	}
}

func TestBuildUnsignedFirebaseTokenDefaultsPhotographerToUser(t *testing.T) {
	token, err := BuildUnsignedFirebaseToken(Params{
		ProjectID: "local-photohub",
		UserID:    "uid-2",
		Email:     "b@example.com",
	}, time.Time{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, payload := splitToken(t, token)
	if got, want := payload["photographerId"], "uid-2"; got != want {
		t.Errorf("photographerId = %v, want %v", got, want)
	}
}

func TestBuildUnsignedFirebaseTokenRequiresFields(t *testing.T) {
	if _, err := BuildUnsignedFirebaseToken(Params{UserID: "u", Email: "e"}, time.Now()); err == nil {
		t.Fatal("expected error for missing project id")
	}
	if _, err := BuildUnsignedFirebaseToken(Params{ProjectID: "p", Email: "e"}, time.Now()); err == nil {
		t.Fatal("expected error for missing user id")
	}
	if _, err := BuildUnsignedFirebaseToken(Params{ProjectID: "p", UserID: "u"}, time.Now()); err == nil {
		t.Fatal("expected error for missing email")
	}
}

func splitToken(t *testing.T, token string) (map[string]interface{}, map[string]interface{}) {
	t.Helper()
	parts := strings.Split(token, ".")
	if len(parts) < 2 {
		t.Fatalf("invalid token format: %q", token)
	}

	header := decodeSegment(t, parts[0])
	payload := decodeSegment(t, parts[1])
	return header, payload
}

func decodeSegment(t *testing.T, segment string) map[string]interface{} {
	t.Helper()
	raw, err := base64.RawURLEncoding.DecodeString(segment)
	if err != nil {
		t.Fatalf("decode segment: %v", err)
	}

	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal segment: %v", err)
	}
	return out
}
