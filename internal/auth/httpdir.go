package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	retry "github.com/appleboy/go-httpretry"

	"github.com/TCH93/Indico-Dev/internal/config"
	"github.com/TCH93/Indico-Dev/internal/core"
	"github.com/TCH93/Indico-Dev/internal/models"

	"github.com/google/uuid"
)

// BackendHTTPDir is the backend id of the HTTP directory backend.
const BackendHTTPDir = "httpdir"

// Compile-time interface check.
var _ core.Authenticator = (*HTTPDirBackend)(nil)

// HTTPDirBackend delegates credential verification and user/group search to
// an external directory exposed over HTTP. Users authenticated here are
// auto-activated: the directory already vouches for them.
type HTTPDirBackend struct {
	UnsupportedBackend
	cfg    *config.Config
	client *retry.Client
}

// NewHTTPDirBackend creates the HTTP directory backend.
func NewHTTPDirBackend(cfg *config.Config, client *retry.Client) *HTTPDirBackend {
	return &HTTPDirBackend{
		UnsupportedBackend: NewUnsupportedBackend(
			BackendHTTPDir,
			"Directory",
			"External user directory reached over HTTP",
			cfg,
		),
		cfg:    cfg,
		client: client,
	}
}

// dirUser is the user record shape the directory API returns.
type dirUser struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	FirstName   string `json:"first_name"`
	Surname     string `json:"surname"`
	Affiliation string `json:"affiliation,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Login       string `json:"login,omitempty"`
}

type dirAuthRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type dirAuthResponse struct {
	Success bool     `json:"success"`
	User    *dirUser `json:"user,omitempty"`
	Message string   `json:"message,omitempty"`
}

type dirSearchRequest struct {
	Criteria map[string]string `json:"criteria,omitempty"`
	Exact    bool              `json:"exact,omitempty"`
	ID       string            `json:"id,omitempty"`
	Letter   string            `json:"letter,omitempty"`
	Index    string            `json:"index,omitempty"`
	Group    string            `json:"group,omitempty"`
	User     string            `json:"user,omitempty"`
}

func (u *dirUser) toUser() *models.User {
	id := u.ID
	if id == "" {
		id = uuid.New().String()
	}
	return &models.User{
		ID:          id,
		Email:       u.Email,
		FirstName:   u.FirstName,
		Surname:     u.Surname,
		Affiliation: u.Affiliation,
		Phone:       u.Phone,
		Login:       u.Login,
		PersonID:    u.ID,
	}
}

// post sends a JSON request to the directory API and decodes the reply into out.
func (b *HTTPDirBackend) post(ctx context.Context, endpoint string, reqBody, out any) error {
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := b.client.Post(
		ctx,
		b.cfg.HTTPDirURL+endpoint,
		retry.WithBody("application/json", bytes.NewBuffer(jsonData)),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDirConnection, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response", ErrDirInvalidResp)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Limit body preview to 200 characters to avoid overwhelming logs
		preview := string(body)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		return fmt.Errorf("%w: HTTP %d - %s", ErrDirInvalidResp, resp.StatusCode, preview)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", ErrDirInvalidResp, err)
	}
	return nil
}

// AuthenticateCredential verifies the credential against the directory API.
// A rejected credential is (nil, nil); only transport and protocol problems
// surface as errors.
func (b *HTTPDirBackend) AuthenticateCredential(
	ctx context.Context,
	loginID, secret string,
) (*models.User, error) {
	var authResp dirAuthResponse
	err := b.post(ctx, "/authenticate", dirAuthRequest{
		Login:    models.NormalizeLogin(loginID),
		Password: secret,
	}, &authResp)
	if err != nil {
		return nil, err
	}
	if !authResp.Success || authResp.User == nil {
		return nil, nil
	}
	return authResp.User.toUser(), nil
}

// CreateIdentity builds a new unlinked identity. No secret is stored: the
// directory holds the credential.
func (b *HTTPDirBackend) CreateIdentity(user *models.User, loginID string) *models.Identity {
	return &models.Identity{
		ID:              uuid.New().String(),
		AuthenticatorID: b.ID(),
		LoginID:         models.NormalizeLogin(loginID),
		UserID:          user.ID,
	}
}

// CreateUser provisions a user from the directory record for a login.
func (b *HTTPDirBackend) CreateUser(ctx context.Context, loginID string) (*models.User, error) {
	users, err := b.searchUsers(ctx, dirSearchRequest{
		Criteria: map[string]string{"login": models.NormalizeLogin(loginID)},
		Exact:    true,
	})
	if err != nil || len(users) == 0 {
		return nil, err
	}
	return users[0], nil
}

// MatchUser searches the directory with the given criteria.
func (b *HTTPDirBackend) MatchUser(
	ctx context.Context,
	criteria map[string]string,
	exact bool,
) ([]*models.User, error) {
	return b.searchUsers(ctx, dirSearchRequest{Criteria: criteria, Exact: exact})
}

// MatchUserFirstLetter searches the directory by first letter of the index.
func (b *HTTPDirBackend) MatchUserFirstLetter(
	ctx context.Context,
	index, letter string,
) ([]*models.User, error) {
	return b.searchUsers(ctx, dirSearchRequest{Index: index, Letter: letter})
}

// SearchUserByID looks up a single directory user by id.
func (b *HTTPDirBackend) SearchUserByID(ctx context.Context, id string) (*models.User, error) {
	users, err := b.searchUsers(ctx, dirSearchRequest{ID: id})
	if err != nil || len(users) == 0 {
		return nil, err
	}
	return users[0], nil
}

func (b *HTTPDirBackend) searchUsers(ctx context.Context, req dirSearchRequest) ([]*models.User, error) {
	var searchResp struct {
		Users []dirUser `json:"users"`
	}
	if err := b.post(ctx, "/users/search", req, &searchResp); err != nil {
		return nil, err
	}
	users := make([]*models.User, 0, len(searchResp.Users))
	for i := range searchResp.Users {
		users = append(users, searchResp.Users[i].toUser())
	}
	return users, nil
}

// MatchGroup searches directory groups.
func (b *HTTPDirBackend) MatchGroup(
	ctx context.Context,
	criteria map[string]string,
	exact bool,
) ([]*models.Group, error) {
	return b.searchGroups(ctx, dirSearchRequest{Criteria: criteria, Exact: exact})
}

// MatchGroupFirstLetter searches directory groups by first letter.
func (b *HTTPDirBackend) MatchGroupFirstLetter(ctx context.Context, letter string) ([]*models.Group, error) {
	return b.searchGroups(ctx, dirSearchRequest{Letter: letter})
}

func (b *HTTPDirBackend) searchGroups(ctx context.Context, req dirSearchRequest) ([]*models.Group, error) {
	var searchResp struct {
		Groups []models.Group `json:"groups"`
	}
	if err := b.post(ctx, "/groups/search", req, &searchResp); err != nil {
		return nil, err
	}
	groups := make([]*models.Group, 0, len(searchResp.Groups))
	for i := range searchResp.Groups {
		groups = append(groups, &searchResp.Groups[i])
	}
	return groups, nil
}

// GetGroupMemberList returns the member logins of a directory group.
func (b *HTTPDirBackend) GetGroupMemberList(ctx context.Context, group string) ([]string, error) {
	var membersResp struct {
		Members []string `json:"members"`
	}
	if err := b.post(ctx, "/groups/members", dirSearchRequest{Group: group}, &membersResp); err != nil {
		return nil, err
	}
	return membersResp.Members, nil
}

// IsUserInGroup checks directory group membership.
func (b *HTTPDirBackend) IsUserInGroup(ctx context.Context, user, group string) (bool, error) {
	var memberResp struct {
		Member bool `json:"member"`
	}
	err := b.post(ctx, "/groups/member", dirSearchRequest{Group: group, User: user}, &memberResp)
	if err != nil {
		return false, err
	}
	return memberResp.Member, nil
}

// CanAutoActivateUsers is true: the directory is authoritative, so users it
// returns need no manual activation step.
func (b *HTTPDirBackend) CanAutoActivateUsers() bool { return true }
