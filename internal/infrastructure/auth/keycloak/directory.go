package keycloak

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/turtacn/ContractKeeper/internal/domain/access"
	"github.com/turtacn/ContractKeeper/internal/domain/reminder"
	"github.com/turtacn/ContractKeeper/pkg/errors"
)

var ErrUserNotFound = errors.New(errors.ErrCodeRecipientUnknown, "user not found in realm")

// Directory answers group and user questions from the realm admin API.
// Users are addressed by username and groups by name, the same strings
// stored as contract owners and in the editors/viewers settings.
// Nothing is cached: membership changes take effect on the next call.
type Directory struct {
	client   *Client
	pageSize int
}

// defaultPageSize matches the admin API's own default for list endpoints.
const defaultPageSize = 100

var (
	_ access.GroupDirectory  = (*Directory)(nil)
	_ reminder.UserDirectory = (*Directory)(nil)
)

// NewDirectory returns a Directory backed by client's service account.
// The account needs the realm-management view-users role.
func NewDirectory(client *Client) *Directory {
	return &Directory{client: client, pageSize: defaultPageSize}
}

type userRepresentation struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Enabled   bool   `json:"enabled"`
}

type groupRepresentation struct {
	ID        string                `json:"id"`
	Name      string                `json:"name"`
	Path      string                `json:"path"`
	SubGroups []groupRepresentation `json:"subGroups"`
}

// IsAdmin reports membership of the configured admin group.
func (d *Directory) IsAdmin(ctx context.Context, userID string) (bool, error) {
	return d.IsMemberOf(ctx, userID, d.client.config.AdminGroup)
}

// IsMemberOf reports whether userID belongs to groupID.  Unknown users are
// members of nothing.
func (d *Directory) IsMemberOf(ctx context.Context, userID, groupID string) (bool, error) {
	user, err := d.findUser(ctx, userID)
	if errors.IsCode(err, errors.ErrCodeRecipientUnknown) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	groups, err := getAll[groupRepresentation](ctx, d, "/users/"+url.PathEscape(user.ID)+"/groups", nil)
	if err != nil {
		return false, err
	}
	for _, g := range groups {
		if g.Name == groupID || strings.TrimPrefix(g.Path, "/") == groupID {
			return true, nil
		}
	}
	return false, nil
}

// MembersOf lists the usernames in groupID.  An unknown group has no
// members.
func (d *Directory) MembersOf(ctx context.Context, groupID string) ([]string, error) {
	q := url.Values{}
	q.Set("search", groupID)
	q.Set("exact", "true")
	var groups []groupRepresentation
	if err := d.get(ctx, "/groups", q, &groups); err != nil {
		return nil, err
	}
	group := findGroup(groups, groupID)
	if group == nil {
		return []string{}, nil
	}

	members, err := getAll[userRepresentation](ctx, d, "/groups/"+url.PathEscape(group.ID)+"/members", nil)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(members))
	for _, m := range members {
		out = append(out, m.Username)
	}
	return out, nil
}

// getAll follows first/max paging until the server returns a short page.
func getAll[T any](ctx context.Context, d *Directory, path string, query url.Values) ([]T, error) {
	var all []T
	for first := 0; ; first += d.pageSize {
		q := url.Values{}
		for k, v := range query {
			q[k] = v
		}
		q.Set("first", strconv.Itoa(first))
		q.Set("max", strconv.Itoa(d.pageSize))

		var page []T
		if err := d.get(ctx, path, q, &page); err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < d.pageSize {
			return all, nil
		}
	}
}

// findGroup searches the returned tree; search responses nest matches
// under their parents.
func findGroup(groups []groupRepresentation, name string) *groupRepresentation {
	for i := range groups {
		if groups[i].Name == name {
			return &groups[i]
		}
		if g := findGroup(groups[i].SubGroups, name); g != nil {
			return g
		}
	}
	return nil
}

// LookupUser resolves a username to the profile used for email reminders.
func (d *Directory) LookupUser(ctx context.Context, userID string) (*reminder.UserProfile, error) {
	user, err := d.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(user.FirstName + " " + user.LastName)
	return &reminder.UserProfile{ID: user.Username, Email: user.Email, DisplayName: name}, nil
}

func (d *Directory) findUser(ctx context.Context, username string) (*userRepresentation, error) {
	q := url.Values{}
	q.Set("username", username)
	q.Set("exact", "true")
	var users []userRepresentation
	if err := d.get(ctx, "/users", q, &users); err != nil {
		return nil, err
	}
	for i := range users {
		if strings.EqualFold(users[i].Username, username) {
			return &users[i], nil
		}
	}
	return nil, ErrUserNotFound.WithDetail(username)
}

func (d *Directory) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	token, err := d.client.GetServiceToken(ctx)
	if err != nil {
		return err
	}
	endpoint := d.client.config.adminURL() + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	resp, err := d.client.doWithRetry(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errors.NotFound("keycloak resource not found").WithDetail(path)
	case resp.StatusCode != http.StatusOK:
		return errors.New(errors.ErrCodeExternalService, "keycloak admin request failed").
			WithDetail(path + ": " + resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode keycloak response")
	}
	return nil
}

//Personal.AI order the ending
