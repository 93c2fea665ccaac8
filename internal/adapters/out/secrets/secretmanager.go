package secrets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Prefix marks a config value that names a secret instead of holding it.
const Prefix = "sm://"

var (
	ErrNotConfigured = errors.New("secrets: not configured")
	ErrNotFound      = errors.New("secrets: secret not found")
	ErrEmpty         = errors.New("secrets: secret payload is empty")
)

type accessor interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error)
}

// ResolverSM resolves "sm://" references through Secret Manager.
//
//	sm://db-password                       -> projects/<ProjectID>/secrets/db-password/versions/latest
//	sm://db-password/3                     -> projects/<ProjectID>/secrets/db-password/versions/3
//	sm://projects/p/secrets/x/versions/2   -> used as is
type ResolverSM struct {
	client    accessor
	closer    func() error
	ProjectID string
}

func NewResolverSM(ctx context.Context, projectID string) (*ResolverSM, error) {
	pid := strings.TrimSpace(projectID)
	if pid == "" {
		return nil, fmt.Errorf("%w: projectID is empty", ErrNotConfigured)
	}
	c, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return &ResolverSM{client: c, closer: c.Close, ProjectID: pid}, nil
}

func (r *ResolverSM) Close() error {
	if r == nil || r.closer == nil {
		return nil
	}
	return r.closer()
}

// IsReference reports whether v should be resolved.
func IsReference(v string) bool {
	return strings.HasPrefix(strings.TrimSpace(v), Prefix)
}

// Resolve returns v unchanged unless it is an sm:// reference.
func (r *ResolverSM) Resolve(ctx context.Context, v string) (string, error) {
	if !IsReference(v) {
		return v, nil
	}
	if r == nil || r.client == nil {
		return "", ErrNotConfigured
	}
	name, err := r.versionName(strings.TrimPrefix(strings.TrimSpace(v), Prefix))
	if err != nil {
		return "", err
	}

	res, err := r.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return "", fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return "", fmt.Errorf("secrets: access %s: %w", name, err)
	}
	if res == nil || res.Payload == nil {
		return "", fmt.Errorf("%w: %s", ErrEmpty, name)
	}
	s := strings.TrimSpace(string(res.Payload.Data))
	if s == "" {
		return "", fmt.Errorf("%w: %s", ErrEmpty, name)
	}
	return s, nil
}

func (r *ResolverSM) versionName(ref string) (string, error) {
	ref = strings.Trim(strings.TrimSpace(ref), "/")
	if ref == "" {
		return "", fmt.Errorf("%w: empty reference", ErrNotFound)
	}
	if strings.HasPrefix(ref, "projects/") {
		if !strings.Contains(ref, "/versions/") {
			ref += "/versions/latest"
		}
		return ref, nil
	}
	if r.ProjectID == "" {
		return "", fmt.Errorf("%w: projectID is empty", ErrNotConfigured)
	}
	id, version, _ := strings.Cut(ref, "/")
	if version == "" {
		version = "latest"
	}
	return fmt.Sprintf("projects/%s/secrets/%s/versions/%s", r.ProjectID, id, version), nil
}
