package storage

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mr-tron/base58"
)

func testIdentity(t *testing.T) ed25519.PublicKey {
	t.Helper()
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("keygen failed: %v", err)
	}
	return pub
}

func TestResolvePathsLayout(t *testing.T) {
	root := t.TempDir()
	identity := testIdentity(t)

	payload, sig, err := ResolvePaths(root, identity, "notes.txt")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	want := filepath.Join(root, base58.Encode(identity), "notes.txt")
	if payload != want {
		t.Fatalf("payload path is %q, want %q", payload, want)
	}
	if sig != payload+SignatureSuffix {
		t.Fatalf("signature path is %q, want payload + %q", sig, SignatureSuffix)
	}
}

func TestResolvePathsAllowsSubdirectories(t *testing.T) {
	root := t.TempDir()
	payload, _, err := ResolvePaths(root, testIdentity(t), filepath.Join("photos", "2024", "cat.jpg"))
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if !strings.HasSuffix(payload, filepath.Join("photos", "2024", "cat.jpg")) {
		t.Fatalf("unexpected payload path %q", payload)
	}
}

func TestResolvePathsRejectsTraversal(t *testing.T) {
	root := t.TempDir()
	identity := testIdentity(t)
	otherIdentity := testIdentity(t)

	names := []string{
		"../escape.txt",
		"../../etc/passwd",
		"photos/../../escape.txt",
		"..",
		".",
		"",
		"../" + base58.Encode(otherIdentity) + "/notes.txt",
	}
	for _, name := range names {
		if _, _, err := ResolvePaths(root, identity, name); !errors.Is(err, ErrOutsideRoot) {
			t.Fatalf("name %q: expected ErrOutsideRoot, got %v", name, err)
		}
	}
}

func TestResolvePathsRejectsReservedSuffix(t *testing.T) {
	root := t.TempDir()
	identity := testIdentity(t)

	// "notes.txt.sig" would land exactly where "notes.txt" keeps its
	// signature, letting one payload clobber another's signature file.
	for _, name := range []string{"notes.txt.sig", ".sig", "photos/cat.jpg.sig"} {
		if _, _, err := ResolvePaths(root, identity, name); !errors.Is(err, ErrReservedName) {
			t.Fatalf("name %q: expected ErrReservedName, got %v", name, err)
		}
	}
}

func TestResolvePathsDistinctIdentitiesDistinctNamespaces(t *testing.T) {
	root := t.TempDir()
	a, _, _ := ResolvePaths(root, testIdentity(t), "notes.txt")
	b, _, _ := ResolvePaths(root, testIdentity(t), "notes.txt")
	if a == b {
		t.Fatal("two identities resolved the same path for the same name")
	}
}

func TestWithin(t *testing.T) {
	dir := t.TempDir()
	if !Within(dir, filepath.Join(dir, "file.txt")) {
		t.Fatal("direct child must be within")
	}
	if Within(dir, filepath.Join(dir, "..", "file.txt")) {
		t.Fatal("sibling of root must not be within")
	}
	if Within(dir, dir) {
		t.Fatal("root itself is not strictly within")
	}
}
