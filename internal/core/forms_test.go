package core

import (
	"testing"

	"github.com/mikey-austin/signage/pkg/signage"
)

func TestFolderFormValidation(t *testing.T) {
	tests := []struct {
		name string
		form FolderForm
		msg  string
	}{
		{"blank name", FolderForm{Name: "  "}, "Please enter a name"},
		{"missing end", FolderForm{Name: "Promo", Expirable: true, StartDate: "2024-05-01"}, "Please enter a start date and end date"},
		{"bad date", FolderForm{Name: "Promo", StartDate: "05/01/2024", EndDate: "2024-05-02"}, "start date must be YYYY-MM-DD"},
		{"reversed", FolderForm{Name: "Promo", StartDate: "2024-05-02", EndDate: "2024-05-01"}, "end date must not be before start date"},
	}
	for _, test := range tests {
		_, err := test.form.Body(nil)
		if err == nil || err.Error() != test.msg {
			t.Fatalf("%s: expected %q, got %v", test.name, test.msg, err)
		}
		if ExitCode(err) != ExitUsage {
			t.Fatalf("%s: expected usage exit", test.name)
		}
	}
}

func TestFolderFormTrimsTimestamps(t *testing.T) {
	id := int64(9)
	body, err := FolderForm{Name: "Promo", StartDate: "2024-05-01T00:00:00.000Z", EndDate: "2024-05-01"}.Body(&id)
	if err != nil {
		t.Fatalf("body: %v", err)
	}
	if body.StartDate != "2024-05-01" || body.EndDate != "2024-05-01" || *body.FolderID != 9 {
		t.Fatalf("unexpected body %+v", body)
	}

	plain, err := FolderForm{Name: "Evergreen"}.Body(nil)
	if err != nil || plain.StartDate != "" || plain.FolderID != nil {
		t.Fatalf("unexpected body %+v %v", plain, err)
	}
}

func TestRenameKeepsExtension(t *testing.T) {
	file := signage.MediaFile{ID: 4, Name: "banner.png"}
	body, err := RenameBody(file, "summer_banner")
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if body.Name != "summer_banner.png" || body.FileID != 4 {
		t.Fatalf("unexpected body %+v", body)
	}
	body, _ = RenameBody(file, "summer_banner.png")
	if body.Name != "summer_banner.png" {
		t.Fatalf("expected extension not doubled, got %s", body.Name)
	}
	if _, err := RenameBody(file, "summer banner"); err == nil {
		t.Fatalf("expected pattern error")
	}
	if _, err := RenameBody(file, ""); err == nil {
		t.Fatalf("expected name error")
	}
}

func TestPlaylistFormDefaultsDuration(t *testing.T) {
	body, err := PlaylistForm{Name: "Lobby"}.Body(nil)
	if err != nil || body.DefaultDuration != DefaultPlaylistDuration {
		t.Fatalf("unexpected body %+v %v", body, err)
	}
	if _, err := (PlaylistForm{Name: "Lobby", DefaultDuration: -5}).Body(nil); err == nil {
		t.Fatalf("expected duration error")
	}
	if _, err := (PlaylistForm{}).Body(nil); err == nil {
		t.Fatalf("expected name error")
	}
}

func TestPlayerFormDeviceKey(t *testing.T) {
	playlist := int64(3)
	base := PlayerForm{Name: "Lobby", Location: "Ground floor", PlaylistID: &playlist}

	tests := []struct {
		key string
		ok  bool
	}{
		{"1234567", false},
		{"  12345678  ", true},
		{"1234567890123456", true},
		{"12345678901234567", false},
	}
	for _, test := range tests {
		form := base
		form.DeviceKey = test.key
		body, err := form.Body(nil)
		if (err == nil) != test.ok {
			t.Fatalf("key %q: expected ok=%v, got %v", test.key, test.ok, err)
		}
		if test.ok && body.DeviceKey != "12345678" && len(body.DeviceKey) != 16 {
			t.Fatalf("expected trimmed key, got %q", body.DeviceKey)
		}
	}

	missing := base
	missing.PlaylistID = nil
	missing.DeviceKey = "12345678"
	if _, err := missing.Body(nil); err == nil || err.Error() != "Please select a playlist" {
		t.Fatalf("expected playlist error, got %v", err)
	}
}
