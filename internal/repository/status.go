package repository

import (
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/spf13/afero"

	"github.com/spachava753/ctictl/internal/models"
)

// CheckoutStatus describes what is on disk for one component.
type CheckoutStatus struct {
	Present bool
	Staged  bool
	Branch  string // empty when HEAD is detached or unreadable
	Commit  string // abbreviated HEAD hash
	Err     error  // set when the checkout exists but could not be inspected
}

// String renders the status for human output.
func (cs CheckoutStatus) String() string {
	switch {
	case !cs.Present:
		return "missing"
	case cs.Err != nil:
		return "present (unreadable)"
	case cs.Branch == "":
		return fmt.Sprintf("detached@%s", cs.Commit)
	default:
		return fmt.Sprintf("%s@%s", cs.Branch, cs.Commit)
	}
}

// Status inspects the component's checkout. The branch and commit are
// informational; presence is still the only synchronization signal.
func (s *Syncer) Status(comp models.ComponentDescriptor) CheckoutStatus {
	var cs CheckoutStatus
	cs.Present = s.Present(comp.ID)
	if !cs.Present {
		return cs
	}
	if comp.IsConnector() {
		staged, err := afero.DirExists(s.fs, s.StagedPath(comp.ID))
		cs.Staged = err == nil && staged
	}

	repo, err := git.PlainOpen(s.CheckoutPath(comp.ID))
	if err != nil {
		cs.Err = fmt.Errorf("opening repository: %w", err)
		return cs
	}
	head, err := repo.Head()
	if err != nil {
		cs.Err = fmt.Errorf("reading HEAD: %w", err)
		return cs
	}

	if head.Name().IsBranch() {
		cs.Branch = head.Name().Short()
	}
	cs.Commit = head.Hash().String()
	if len(cs.Commit) > 12 {
		cs.Commit = cs.Commit[:12]
	}
	return cs
}
