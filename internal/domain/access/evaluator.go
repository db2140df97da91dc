package access

import (
	"context"
	"strconv"

	"github.com/turtacn/ContractKeeper/internal/domain/contract"
	"github.com/turtacn/ContractKeeper/pkg/errors"
)

// GroupDirectory answers identity questions owned by the identity provider.
type GroupDirectory interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
	IsMemberOf(ctx context.Context, userID, groupID string) (bool, error)
	MembersOf(ctx context.Context, groupID string) ([]string, error)
}

// ConfigSource loads the current editors/viewers configuration.
type ConfigSource interface {
	PermissionConfig(ctx context.Context) (Config, error)
}

// Role is the effective role of a principal.  Higher values imply the
// permissions of lower ones.
type Role int

const (
	RoleNone Role = iota
	RoleViewer
	RoleEditor
	RoleAdmin
)

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleEditor:
		return "editor"
	case RoleViewer:
		return "viewer"
	}
	return "none"
}

// Reasons returned with Forbidden errors.
const (
	ReasonPrivate       = "no access to this private contract"
	ReasonEditRequired  = "editor permission required"
	ReasonRestoreDenied = "only the creator or an administrator can restore this contract"
	ReasonAdminRequired = "administrator permission required"
	ReasonNoAccess      = "no access to contracts"
)

// ─────────────────────────────────────────────────────────────────────────────
// Subject: resolved roles of one principal for one request
// ─────────────────────────────────────────────────────────────────────────────

// Subject is the resolved permission state of a principal.  It is built per
// call by Evaluator.Resolve and must not be cached across requests.
type Subject struct {
	UserID string
	Admin  bool
	Editor bool
	Viewer bool
}

// Role returns the highest role held.
func (s Subject) Role() Role {
	switch {
	case s.Admin:
		return RoleAdmin
	case s.Editor:
		return RoleEditor
	case s.Viewer:
		return RoleViewer
	}
	return RoleNone
}

// HasAccess reports whether the subject may use the contract API at all.
func (s Subject) HasAccess() bool { return s.Role() > RoleNone }

// CanEdit reports whether the subject may create and mutate contracts.
func (s Subject) CanEdit() bool { return s.Admin || s.Editor }

// CanDeletePermanently reports whether the subject may purge contracts.
func (s Subject) CanDeletePermanently() bool { return s.Admin }

// CanRead applies the visibility rule: admins see everything, others see
// everything except private contracts created by someone else.
func (s Subject) CanRead(c *contract.Contract) bool {
	if s.Admin {
		return true
	}
	return !c.IsPrivate || c.IsOwnedBy(s.UserID)
}

// CheckRead returns Forbidden when CanRead is false.
func (s Subject) CheckRead(c *contract.Contract) error {
	if !s.CanRead(c) {
		return errors.Forbidden(ReasonPrivate).WithDetail(contractDetail(c))
	}
	return nil
}

// CheckWrite requires read access and then edit permission.
func (s Subject) CheckWrite(c *contract.Contract) error {
	if err := s.CheckRead(c); err != nil {
		return err
	}
	if !s.CanEdit() {
		return errors.Forbidden(ReasonEditRequired).WithDetail(contractDetail(c))
	}
	return nil
}

// CheckCreate requires edit permission.
func (s Subject) CheckCreate() error {
	if !s.CanEdit() {
		return errors.Forbidden(ReasonEditRequired)
	}
	return nil
}

// CheckRestore allows admins and the contract's creator.  Editors cannot
// restore someone else's trashed contract.
func (s Subject) CheckRestore(c *contract.Contract) error {
	if s.Admin || c.IsOwnedBy(s.UserID) {
		return nil
	}
	return errors.Forbidden(ReasonRestoreDenied).WithDetail(contractDetail(c))
}

// CheckPurge allows admins only.
func (s Subject) CheckPurge() error {
	if !s.Admin {
		return errors.Forbidden(ReasonAdminRequired)
	}
	return nil
}

// CheckAdmin allows admins only.
func (s Subject) CheckAdmin() error { return s.CheckPurge() }

// Info is the permission summary exposed to clients.  Roles imply the
// lower ones: an admin is also reported as editor and viewer.
type Info struct {
	IsAdmin              bool `json:"isAdmin"`
	IsEditor             bool `json:"isEditor"`
	IsViewer             bool `json:"isViewer"`
	CanEdit              bool `json:"canEdit"`
	CanDeletePermanently bool `json:"canDeletePermanently"`
}

// Info summarises the subject.
func (s Subject) Info() Info {
	return Info{
		IsAdmin:              s.Admin,
		IsEditor:             s.Editor || s.Admin,
		IsViewer:             s.Viewer || s.Editor || s.Admin,
		CanEdit:              s.CanEdit(),
		CanDeletePermanently: s.CanDeletePermanently(),
	}
}

func contractDetail(c *contract.Contract) string {
	if c == nil {
		return ""
	}
	return "contract_id=" + strconv.FormatInt(c.ID, 10)
}

// ─────────────────────────────────────────────────────────────────────────────
// Evaluator
// ─────────────────────────────────────────────────────────────────────────────

// Evaluator resolves roles against the group directory and the configured
// principal lists.  It holds no state between calls.
type Evaluator struct {
	directory GroupDirectory
	source    ConfigSource
}

// NewEvaluator constructs an Evaluator.
func NewEvaluator(directory GroupDirectory, source ConfigSource) *Evaluator {
	return &Evaluator{directory: directory, source: source}
}

// IsAdmin is delegated to the directory.
func (e *Evaluator) IsAdmin(ctx context.Context, userID string) (bool, error) {
	ok, err := e.directory.IsAdmin(ctx, userID)
	if err != nil {
		return false, errors.Wrap(err, errors.CodeExternalService, "failed to resolve admin status")
	}
	return ok, nil
}

// IsEditor reports whether userID is listed directly or through a group in
// the editors list.
func (e *Evaluator) IsEditor(ctx context.Context, userID string) (bool, error) {
	cfg, err := e.loadConfig(ctx)
	if err != nil {
		return false, err
	}
	return e.matches(ctx, userID, cfg.Editors)
}

// IsViewer reports whether userID is listed directly or through a group in
// the viewers list.
func (e *Evaluator) IsViewer(ctx context.Context, userID string) (bool, error) {
	cfg, err := e.loadConfig(ctx)
	if err != nil {
		return false, err
	}
	return e.matches(ctx, userID, cfg.Viewers)
}

// CanEdit = IsAdmin ∨ IsEditor.
func (e *Evaluator) CanEdit(ctx context.Context, userID string) (bool, error) {
	s, err := e.Resolve(ctx, userID)
	if err != nil {
		return false, err
	}
	return s.CanEdit(), nil
}

// Resolve builds the Subject for userID from a single configuration load.
func (e *Evaluator) Resolve(ctx context.Context, userID string) (Subject, error) {
	s := Subject{UserID: userID}

	admin, err := e.IsAdmin(ctx, userID)
	if err != nil {
		return s, err
	}
	s.Admin = admin

	cfg, err := e.loadConfig(ctx)
	if err != nil {
		return s, err
	}
	if s.Editor, err = e.matches(ctx, userID, cfg.Editors); err != nil {
		return s, err
	}
	if s.Viewer, err = e.matches(ctx, userID, cfg.Viewers); err != nil {
		return s, err
	}
	return s, nil
}

// CheckRead resolves userID and applies Subject.CheckRead.
func (e *Evaluator) CheckRead(ctx context.Context, userID string, c *contract.Contract) error {
	s, err := e.Resolve(ctx, userID)
	if err != nil {
		return err
	}
	return s.CheckRead(c)
}

// CheckWrite resolves userID and applies Subject.CheckWrite.
func (e *Evaluator) CheckWrite(ctx context.Context, userID string, c *contract.Contract) error {
	s, err := e.Resolve(ctx, userID)
	if err != nil {
		return err
	}
	return s.CheckWrite(c)
}

// CheckRestore resolves userID and applies Subject.CheckRestore.
func (e *Evaluator) CheckRestore(ctx context.Context, userID string, c *contract.Contract) error {
	s, err := e.Resolve(ctx, userID)
	if err != nil {
		return err
	}
	return s.CheckRestore(c)
}

func (e *Evaluator) loadConfig(ctx context.Context) (Config, error) {
	cfg, err := e.source.PermissionConfig(ctx)
	if err != nil {
		return Config{}, errors.Wrap(err, errors.CodeUnknown, "failed to load permission configuration")
	}
	return cfg, nil
}

// matches walks list in order and stops at the first hit.
func (e *Evaluator) matches(ctx context.Context, userID string, list []Principal) (bool, error) {
	for _, p := range list {
		switch p.Kind {
		case KindUser:
			if p.ID == userID {
				return true, nil
			}
		case KindGroup:
			member, err := e.directory.IsMemberOf(ctx, userID, p.ID)
			if err != nil {
				return false, errors.Wrap(err, errors.CodeExternalService, "failed to resolve group membership").
					WithDetail("group=" + p.ID)
			}
			if member {
				return true, nil
			}
		}
	}
	return false, nil
}

//Personal.AI order the ending
