// Package syncstate computes the sync status of a tracked folder. Evaluation
// only reads the filesystem; it never moves, writes or persists anything.
package syncstate

import (
	"context"
	"log/slog"

	"github.com/Gold240sx/MacOS-Bookmarks/internal/folder"
	"github.com/Gold240sx/MacOS-Bookmarks/internal/token"
	"github.com/Gold240sx/MacOS-Bookmarks/internal/utils"
)

// Decoder resolves identity tokens
type Decoder interface {
	Decode(ctx context.Context, token []byte) (*token.Resolution, error)
}

// TrashDetector reports whether a path lies inside a trash directory
type TrashDetector interface {
	IsInTrash(path string) bool
}

// Owner confirms that a relocated path still belongs to the folder being evaluated
type Owner func(path string) bool

// Evaluator is safe for concurrent use as long as its collaborators are
type Evaluator struct {
	codec Decoder
	trash TrashDetector
}

func New(codec Decoder, trash TrashDetector) *Evaluator {
	return &Evaluator{codec: codec, trash: trash}
}

// Evaluate compares the stored path with what the identity token resolves to.
// needsSearch is set when neither locates the folder and it is not in the trash.
//
// A relocated token path the codec could not verify is only trusted if every
// owner accepts it.
func (e *Evaluator) Evaluate(ctx context.Context, storedPath string, identityToken []byte, owners ...Owner) (folder.SyncStatus, bool) {
	fromToken := e.resolveToken(ctx, identityToken, owners)
	storedExists := storedPath != "" && utils.DirExists(storedPath)

	inTrash := e.isInTrash(storedPath) || (fromToken != "" && e.isInTrash(fromToken))
	needsSearch := !storedExists && fromToken == "" && !inTrash

	actual := fromToken
	if actual == "" && storedExists {
		actual = storedPath
	}

	status := folder.SyncStatus{
		IsSynced:    storedExists && utils.SamePath(actual, storedPath) && !inTrash,
		StoredPath:  storedPath,
		ActualPath:  actual,
		WasResolved: fromToken != "",
		IsInTrash:   inTrash,
	}
	return status, needsSearch
}

// resolveToken returns the token's current path if it still exists, or ""
func (e *Evaluator) resolveToken(ctx context.Context, identityToken []byte, owners []Owner) string {
	if len(identityToken) == 0 || e.codec == nil {
		return ""
	}
	res, err := e.codec.Decode(ctx, identityToken)
	if err != nil {
		slog.Debug("identity token", "error", err)
		return ""
	}
	defer res.Release()

	usable := func() bool {
		if !utils.DirExists(res.Path) {
			return false
		}
		if res.Stale && !res.Verified {
			for _, owns := range owners {
				if !owns(res.Path) {
					slog.Debug("identity token relocation rejected", "path", res.Path)
					return false
				}
			}
		}
		return true
	}

	if res.Access == nil {
		if usable() {
			return res.Path
		}
		return ""
	}

	var path string
	_ = res.Access.WithAccess(func() error {
		if usable() {
			path = res.Path
		}
		return nil
	})
	return path
}

func (e *Evaluator) isInTrash(path string) bool {
	return path != "" && e.trash != nil && e.trash.IsInTrash(path)
}
