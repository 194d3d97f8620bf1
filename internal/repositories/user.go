package repositories

import (
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"log/slog"

	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/myrjola/skinwise/internal/errors"
	"github.com/myrjola/skinwise/internal/models"
	"github.com/myrjola/skinwise/internal/sqlite"
)

var ErrNotFound = errors.NewSentinel("not found")

type UserRepository struct {
	db     *sqlite.Database
	logger *slog.Logger
}

func NewUserRepository(db *sqlite.Database, logger *slog.Logger) *UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger.With(slog.String("source", "UserRepository")),
	}
}

// Upsert creates the user or updates its display name.
func (r *UserRepository) Upsert(ctx context.Context, user *models.User) error {
	stmt := `INSERT INTO users (id, display_name)
VALUES (:id, :display_name)
ON CONFLICT (id) DO UPDATE SET display_name = excluded.display_name`
	if _, err := r.db.ReadWrite.NamedExecContext(ctx, stmt, user); err != nil {
		return errors.Wrap(err, "db upsert user",
			slog.String("display_name", user.DisplayName),
			slog.String("user_id", hex.EncodeToString(user.ID)),
		)
	}
	return nil
}

// Get reads the user with its passkey credentials. Returns ErrNotFound if the user does not exist.
func (r *UserRepository) Get(ctx context.Context, id []byte) (*models.User, error) {
	var (
		err  error
		user models.User
	)

	stmt := `SELECT id, display_name FROM users WHERE id = ?`
	if err = r.db.ReadOnly.GetContext(ctx, &user, stmt, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrap(ErrNotFound, "read user", slog.String("user_id", hex.EncodeToString(id)))
		}
		return nil, errors.Wrap(err, "read user")
	}

	stmt = `SELECT id,
       public_key,
       attestation_type,
       transport,
       flag_user_present,
       flag_user_verified,
       flag_backup_eligible,
       flag_backup_state,
       authenticator_aaguid,
       authenticator_sign_count,
       authenticator_clone_warning,
       authenticator_attachment
FROM credentials
WHERE user_id = ?
ORDER BY id`
	rows, err := r.db.ReadOnly.QueryContext(ctx, stmt, id)
	if err != nil {
		return nil, errors.Wrap(err, "query credentials")
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			r.logger.LogAttrs(ctx, slog.LevelError, "could not close rows",
				errors.SlogError(errors.Wrap(closeErr, "close rows")))
		}
	}()

	user.Credentials = []webauthn.Credential{}
	for rows.Next() {
		var (
			credential webauthn.Credential
			transport  []byte
		)
		if err = rows.Scan(
			&credential.ID,
			&credential.PublicKey,
			&credential.AttestationType,
			&transport,
			&credential.Flags.UserPresent,
			&credential.Flags.UserVerified,
			&credential.Flags.BackupEligible,
			&credential.Flags.BackupState,
			&credential.Authenticator.AAGUID,
			&credential.Authenticator.SignCount,
			&credential.Authenticator.CloneWarning,
			&credential.Authenticator.Attachment,
		); err != nil {
			return nil, errors.Wrap(err, "scan credential")
		}
		if err = json.Unmarshal(transport, &credential.Transport); err != nil {
			return nil, errors.Wrap(err, "JSON decode transport")
		}
		user.Credentials = append(user.Credentials, credential)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "check rows error")
	}

	return &user, nil
}

// UpsertCredential stores a new credential or refreshes the counters of an existing one.
func (r *UserRepository) UpsertCredential(ctx context.Context, userID []byte, credential *webauthn.Credential) error {
	stmt := `INSERT INTO credentials (id,
                         user_id,
                         public_key,
                         attestation_type,
                         transport,
                         flag_user_present,
                         flag_user_verified,
                         flag_backup_eligible,
                         flag_backup_state,
                         authenticator_aaguid,
                         authenticator_sign_count,
                         authenticator_clone_warning,
                         authenticator_attachment)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET attestation_type            = excluded.attestation_type,
                               transport                   = excluded.transport,
                               flag_user_present           = excluded.flag_user_present,
                               flag_user_verified          = excluded.flag_user_verified,
                               flag_backup_eligible        = excluded.flag_backup_eligible,
                               flag_backup_state           = excluded.flag_backup_state,
                               authenticator_aaguid        = excluded.authenticator_aaguid,
                               authenticator_sign_count    = excluded.authenticator_sign_count,
                               authenticator_clone_warning = excluded.authenticator_clone_warning,
                               authenticator_attachment    = excluded.authenticator_attachment`
	encodedTransport, err := json.Marshal(credential.Transport)
	if err != nil {
		return errors.Wrap(err, "JSON encode transport")
	}
	if encodedTransport == nil || string(encodedTransport) == "null" {
		encodedTransport = []byte("[]")
	}
	_, err = r.db.ReadWrite.ExecContext(
		ctx,
		stmt,
		credential.ID,
		userID,
		credential.PublicKey,
		credential.AttestationType,
		string(encodedTransport),
		credential.Flags.UserPresent,
		credential.Flags.UserVerified,
		credential.Flags.BackupEligible,
		credential.Flags.BackupState,
		credential.Authenticator.AAGUID,
		credential.Authenticator.SignCount,
		credential.Authenticator.CloneWarning,
		string(credential.Authenticator.Attachment),
	)
	if err != nil {
		return errors.Wrap(err, "db upsert credential",
			slog.String("user_id", hex.EncodeToString(userID)),
			slog.String("credential_id", hex.EncodeToString(credential.ID)),
		)
	}
	return nil
}

// Exists reports whether a user with the given id exists.
func (r *UserRepository) Exists(ctx context.Context, userID []byte) (bool, error) {
	stmt := `SELECT EXISTS(SELECT 1 FROM users WHERE id = ?)`
	var exists bool
	if err := r.db.ReadOnly.GetContext(ctx, &exists, stmt, userID); err != nil {
		return false, errors.Wrap(err, "query user exists")
	}
	return exists, nil
}
