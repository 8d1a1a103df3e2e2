package resolver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Gold240sx/MacOS-Bookmarks/internal/folder"
	"github.com/Gold240sx/MacOS-Bookmarks/internal/syncstate"
	"github.com/Gold240sx/MacOS-Bookmarks/internal/utils"
)

// Strategy is one way of finding a folder's current location
type Strategy struct {
	Name    string
	Resolve func(ctx context.Context, f *folder.TrackedFolder) (string, bool)
}

// strategies lists the ways to find a folder, cheapest first.
// The picker is only consulted when prompt is set.
func (r *Resolver) strategies(prompt bool) []Strategy {
	list := []Strategy{
		{Name: "stored path", Resolve: r.fromStoredPath},
		{Name: "identity token", Resolve: r.fromToken},
		{Name: "marker discovery", Resolve: r.fromMarker},
	}
	if prompt {
		list = append(list, Strategy{Name: "folder picker", Resolve: r.fromPicker})
	}
	return list
}

// runStrategies returns the first location any strategy produces
func runStrategies(ctx context.Context, f *folder.TrackedFolder, list []Strategy) (string, string, bool) {
	for _, s := range list {
		if ctx.Err() != nil {
			return "", "", false
		}
		if path, ok := s.Resolve(ctx, f); ok {
			slog.Debug("resolved", "id", f.ID, "strategy", s.Name, "path", path)
			return path, s.Name, true
		}
	}
	return "", "", false
}

// fromStoredPath accepts the stored path if it is a directory that is not
// claimed by another folder's marker
func (r *Resolver) fromStoredPath(ctx context.Context, f *folder.TrackedFolder) (string, bool) {
	if f.StoredPath == "" || !utils.DirExists(f.StoredPath) {
		return "", false
	}
	if id := r.markers.ReadID(r.markers.Path(f.StoredPath, f.Name)); id != "" && id != f.ID {
		slog.Debug("stored path claimed by another folder", "id", f.ID, "owner", id)
		return "", false
	}
	return f.StoredPath, true
}

func (r *Resolver) fromToken(ctx context.Context, f *folder.TrackedFolder) (string, bool) {
	if len(f.IdentityToken) == 0 {
		return "", false
	}
	res, err := r.codec.Decode(ctx, f.IdentityToken)
	if err != nil {
		slog.Debug("identity token", "id", f.ID, "error", err)
		return "", false
	}
	defer res.Release()

	if !utils.DirExists(res.Path) {
		return "", false
	}
	if res.Stale && !res.Verified && !r.owns(f)(res.Path) {
		slog.Debug("identity token relocation rejected", "id", f.ID, "path", res.Path)
		return "", false
	}
	return res.Path, true
}

// owns accepts a directory only if it holds f's marker. File ids get reused
// after a delete, so an unverified token hit is not proof on its own.
func (r *Resolver) owns(f *folder.TrackedFolder) syncstate.Owner {
	return func(dir string) bool {
		if r.markers.ReadID(r.markers.Path(dir, f.Name)) == f.ID {
			return true
		}
		found, ok := r.markers.FindIn(dir)
		return ok && r.markers.ReadID(found) == f.ID
	}
}

// evaluate computes f's sync status, trusting relocations only when they carry f's identity
func (r *Resolver) evaluate(ctx context.Context, f *folder.TrackedFolder) (folder.SyncStatus, bool) {
	return r.eval.Evaluate(ctx, f.StoredPath, f.IdentityToken, r.owns(f))
}

func (r *Resolver) fromMarker(ctx context.Context, f *folder.TrackedFolder) (string, bool) {
	return r.markers.LocateByID(ctx, f.ID)
}

func (r *Resolver) fromPicker(ctx context.Context, f *folder.TrackedFolder) (string, bool) {
	path, ok := r.picker.Prompt(ctx, fmt.Sprintf("Where is %q now?", f.Name))
	if !ok || !utils.DirExists(path) {
		return "", false
	}
	return path, true
}
