package secrets

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestEnvProvider(t *testing.T) {
	t.Setenv("GYM_TEST_SECRET", "  value  ")
	v, err := Env{}.Get("GYM_TEST_SECRET")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if v != "value" {
		t.Errorf("value = %q", v)
	}
}

func TestEnvProviderMissing(t *testing.T) {
	_, err := Env{}.Get("GYM_TEST_SECRET_MISSING")
	if !errors.Is(err, ErrSecretUnavailable) {
		t.Errorf("err = %v, want ErrSecretUnavailable", err)
	}
}

func TestLoadFetchesAllThree(t *testing.T) {
	t.Setenv("GYM_USERNAME", "u@example.edu")
	t.Setenv("GYM_PASSWORD", "hunter2")
	t.Setenv("TOTP_SECRET", "GEZDGNBVGY3TQOJQ")

	c, err := Load(Env{}, DefaultNames())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Username != "u@example.edu" || c.Password != "hunter2" || c.OTPSecret != "GEZDGNBVGY3TQOJQ" {
		t.Errorf("credentials = %+v", c)
	}
}

func TestLoadFailsFast(t *testing.T) {
	t.Setenv("GYM_USERNAME", "u@example.edu")
	t.Setenv("GYM_PASSWORD", "")
	t.Setenv("TOTP_SECRET", "")
	if _, err := Load(Env{}, DefaultNames()); !errors.Is(err, ErrSecretUnavailable) {
		t.Errorf("err = %v, want ErrSecretUnavailable", err)
	}
}

func TestSealedFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.sealed.yaml")
	values := map[string]string{
		"GYM_USERNAME": "u@example.edu",
		"GYM_PASSWORD": "hunter2",
		"TOTP_SECRET":  "GEZDGNBVGY3TQOJQ",
	}

	if err := Seal(path, "correct horse", values); err != nil {
		t.Fatalf("Seal: %v", err)
	}

	f, err := OpenSealed(path, "correct horse")
	if err != nil {
		t.Fatalf("OpenSealed: %v", err)
	}
	for name, want := range values {
		got, err := f.Get(name)
		if err != nil {
			t.Fatalf("Get %s: %v", name, err)
		}
		if got != want {
			t.Errorf("%s = %q, want %q", name, got, want)
		}
	}

	if _, err := f.Get("OTHER"); !errors.Is(err, ErrSecretUnavailable) {
		t.Errorf("unknown name: err = %v, want ErrSecretUnavailable", err)
	}
}

func TestSealedFileWrongPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.sealed.yaml")
	if err := Seal(path, "right", map[string]string{"GYM_USERNAME": "u"}); err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if _, err := OpenSealed(path, "wrong"); !errors.Is(err, ErrSecretUnavailable) {
		t.Errorf("err = %v, want ErrSecretUnavailable", err)
	}
}

func TestSealedFileMissing(t *testing.T) {
	if _, err := OpenSealed(filepath.Join(t.TempDir(), "nope.yaml"), "pw"); !errors.Is(err, ErrSecretUnavailable) {
		t.Errorf("err = %v, want ErrSecretUnavailable", err)
	}
}
