package backup

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/storage"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	sqladmin "google.golang.org/api/sqladmin/v1"
)

const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// CloudSQLExporter exports a Cloud SQL database through the SQL Admin
// API. Every Export mints a fresh short-lived access token.
type CloudSQLExporter struct {
	project         string
	instance        string
	database        string
	credentialsFile string
}

func NewCloudSQLExporter(project, instance, database, credentialsFile string) *CloudSQLExporter {
	return &CloudSQLExporter{
		project:         project,
		instance:        instance,
		database:        database,
		credentialsFile: credentialsFile,
	}
}

// ErrCredentials marks failures to obtain an access token.
var ErrCredentials = errors.New("obtain access token")

func (e *CloudSQLExporter) Export(ctx context.Context, uri string) (string, error) {
	token, err := accessToken(ctx, e.credentialsFile)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCredentials, err)
	}

	svc, err := sqladmin.NewService(ctx, option.WithTokenSource(oauth2.StaticTokenSource(token)))
	if err != nil {
		return "", fmt.Errorf("create sqladmin client: %w", err)
	}

	req := &sqladmin.InstancesExportRequest{
		ExportContext: &sqladmin.ExportContext{
			FileType:  "SQL",
			Uri:       uri,
			Databases: []string{e.database},
		},
	}
	op, err := svc.Instances.Export(e.project, e.instance, req).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("export %s/%s: %w", e.project, e.instance, err)
	}
	return op.Name, nil
}

func accessToken(ctx context.Context, credentialsFile string) (*oauth2.Token, error) {
	var (
		creds *google.Credentials
		err   error
	)
	if credentialsFile != "" {
		creds, err = credentialsFromFile(ctx, credentialsFile)
	} else {
		creds, err = google.FindDefaultCredentials(ctx, cloudPlatformScope)
	}
	if err != nil {
		return nil, err
	}
	return creds.TokenSource.Token()
}

// GCSLister lists backup folders with a delimiter query, one level deep.
type GCSLister struct {
	client *storage.Client
}

func NewGCSLister(ctx context.Context, credentialsFile string) (*GCSLister, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCSLister{client: client}, nil
}

func (l *GCSLister) ListFolders(ctx context.Context, bucket, prefix string) ([]string, error) {
	prefix = strings.Trim(prefix, "/") + "/"
	it := l.client.Bucket(bucket).Objects(ctx, &storage.Query{
		Prefix:    prefix,
		Delimiter: "/",
	})

	folders := make([]string, 0)
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list %s/%s: %w", bucket, prefix, err)
		}
		if attrs.Prefix == "" {
			continue // a plain object directly under prefix
		}
		name := strings.TrimSuffix(strings.TrimPrefix(attrs.Prefix, prefix), "/")
		if name != "" {
			folders = append(folders, name)
		}
	}
	return folders, nil
}

func (l *GCSLister) Close() error {
	return l.client.Close()
}

// UnavailableLister stands in when the storage client could not be
// created at startup. Every listing fails with Err.
type UnavailableLister struct {
	Err error
}

func (l UnavailableLister) ListFolders(context.Context, string, string) ([]string, error) {
	return nil, l.Err
}
