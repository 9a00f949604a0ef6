package keychain

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"cnavi/internal/chrono"
	"cnavi/internal/db"
	"cnavi/lib/platforms/cnavi"

	"github.com/zalando/go-keyring"
)

const (
	Service = "cnavi-cli"

	EnvEmail    = "CNAVI_EMAIL"
	EnvPassword = "CNAVI_PASSWORD"
)

// Keychain stores the portal credentials. The email is kept in the database,
// the password in the os keyring under (Service, email). Environment
// variables take priority over the stored values, field by field.
type Keychain struct {
	qry    *db.Queries
	time   chrono.TimeAPI
	getenv func(string) string
}

func New(database db.DBTX, time chrono.TimeAPI) Keychain {
	return Keychain{
		qry:    db.New(database),
		time:   time,
		getenv: os.Getenv,
	}
}

func (k Keychain) email(ctx context.Context) (string, error) {
	if email := k.getenv(EnvEmail); email != "" {
		return email, nil
	}
	row, err := k.qry.GetCredentials(ctx, Service)
	if errors.Is(err, sql.ErrNoRows) {
		return "", cnavi.ErrMissingCredentials
	}
	if err != nil {
		return "", fmt.Errorf("keychain: %w", err)
	}
	if row.Email == "" {
		return "", cnavi.ErrMissingCredentials
	}
	return row.Email, nil
}

func (k Keychain) Get(ctx context.Context) (cnavi.Credentials, error) {
	email, err := k.email(ctx)
	if err != nil {
		return cnavi.Credentials{}, err
	}
	creds := cnavi.Credentials{
		Identifier: email,
		Secret:     k.getenv(EnvPassword),
	}
	if creds.Secret != "" {
		return creds, nil
	}

	creds.Secret, err = keyring.Get(Service, email)
	if errors.Is(err, keyring.ErrNotFound) {
		return cnavi.Credentials{}, cnavi.ErrMissingCredentials
	}
	if err != nil {
		return cnavi.Credentials{}, fmt.Errorf("keychain: %w", err)
	}
	if creds.Secret == "" {
		return cnavi.Credentials{}, cnavi.ErrMissingCredentials
	}
	return creds, nil
}

func (k Keychain) Set(ctx context.Context, creds cnavi.Credentials) error {
	if creds.Identifier == "" || creds.Secret == "" {
		return cnavi.ErrMissingCredentials
	}
	err := keyring.Set(Service, creds.Identifier, creds.Secret)
	if err != nil {
		return fmt.Errorf("keychain: %w", err)
	}
	err = k.qry.SetCredentials(ctx, db.SetCredentialsParams{
		Service:   Service,
		Email:     creds.Identifier,
		UpdatedAt: k.time.Now().Unix(),
	})
	if err != nil {
		return fmt.Errorf("keychain: %w", err)
	}
	return nil
}
