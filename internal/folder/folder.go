// Package folder defines the tracked folder model and the derived sync status.
package folder

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TrackedFolder is a user-added folder the engine keeps a durable handle to.
// ID never changes after creation. StoredPath and IdentityToken are only
// mutated by the resolver once a new non-trash location is confirmed.
type TrackedFolder struct {
	ID            string    `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	StoredPath    string    `db:"stored_path" json:"storedPath"`
	IdentityToken []byte    `db:"identity_token" json:"-"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time `db:"updated_at" json:"updatedAt"`
}

// New returns a folder with a freshly minted ID
func New(name, path string, token []byte) *TrackedFolder {
	now := time.Now().UTC()
	return &TrackedFolder{
		ID:            uuid.NewString(),
		Name:          name,
		StoredPath:    path,
		IdentityToken: token,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// ShortID is the first block of the UUID, enough to address a folder in the CLI
func (f *TrackedFolder) ShortID() string {
	if i := strings.IndexByte(f.ID, '-'); i > 0 {
		return f.ID[:i]
	}
	return f.ID
}

func (f *TrackedFolder) Clone() *TrackedFolder {
	if f == nil {
		return nil
	}
	c := *f
	if f.IdentityToken != nil {
		c.IdentityToken = append([]byte(nil), f.IdentityToken...)
	}
	return &c
}

func (f *TrackedFolder) String() string {
	return fmt.Sprintf("%s (%s) %s", f.Name, f.ShortID(), f.StoredPath)
}

// SyncStatus is recomputed on every check and never persisted.
type SyncStatus struct {
	IsSynced   bool   `json:"isSynced"`
	StoredPath string `json:"storedPath"`
	ActualPath string `json:"actualPath,omitempty"`
	// WasResolved is set when ActualPath came from the identity token
	WasResolved bool `json:"wasResolved"`
	IsInTrash   bool `json:"isInTrash"`
}

// HasActual reports whether a current location is known
func (s SyncStatus) HasActual() bool {
	return s.ActualPath != ""
}

func (s SyncStatus) String() string {
	return fmt.Sprintf("synced=%t stored=%q actual=%q resolved=%t trash=%t",
		s.IsSynced, s.StoredPath, s.ActualPath, s.WasResolved, s.IsInTrash)
}
