package accessrequest

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/domain/sharing"
	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/audit"
	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/ledger"
)

// RecordSource is the slice of the record ledger the workflow needs.
type RecordSource interface {
	// MissingIDs returns the ids that are not records of patient.
	MissingIDs(ctx context.Context, patient ledger.Principal, ids []ledger.RecordID) ([]ledger.RecordID, error)
	SharedRecords(ctx context.Context, patient ledger.Principal, ids []ledger.RecordID) ([]sharing.SharedRecord, error)
}

// Packager produces and opens shared-data bundles.
type Packager interface {
	CreateDoctorSharedData(ctx context.Context, records []sharing.SharedRecord, doctor ledger.Principal, ids []ledger.RecordID) (ledger.ContentRef, error)
	DecryptDoctorSharedData(ctx context.Context, ref ledger.ContentRef, doctor ledger.Principal) (*sharing.Bundle, error)
}

// MaxDurationSeconds is the longest duration an expiry can be computed for
// without overflowing time.Duration.
const MaxDurationSeconds = math.MaxInt64 / int64(time.Second)

// checkDuration rejects durations that are not positive or cannot be added to
// an approval time.
func checkDuration(seconds int64) error {
	if seconds <= 0 {
		return fmt.Errorf("%w: duration must be positive", ledger.ErrInvalidArgument)
	}
	if seconds > MaxDurationSeconds {
		return fmt.Errorf("%w: duration exceeds %d seconds", ledger.ErrInvalidArgument, MaxDurationSeconds)
	}
	return nil
}

// IDGenerator mints request ids.
type IDGenerator func(ctx context.Context) string

// NewUUID is the default IDGenerator.
func NewUUID(context.Context) string {
	return uuid.New().String()
}

type Service struct {
	repo        Repository
	tx          ledger.Transactor
	audit       audit.Recorder
	clock       ledger.Clock
	records     RecordSource
	packager    Packager
	newID       IDGenerator
	maxDuration int64
}

func NewService(repo Repository, tx ledger.Transactor, rec audit.Recorder, clock ledger.Clock,
	records RecordSource, packager Packager) *Service {
	return &Service{
		repo:     repo,
		tx:       tx,
		audit:    rec,
		clock:    clock,
		records:  records,
		packager: packager,
		newID:    NewUUID,
	}
}

func (s *Service) SetIDGenerator(gen IDGenerator) { s.newID = gen }

// SetMaxDuration caps requested durations. Zero means no cap.
func (s *Service) SetMaxDuration(d time.Duration) { s.maxDuration = int64(d / time.Second) }

// RequestAccess files a request for ids and returns its id. Every id must
// already be a record of the patient; repeated ids keep their first position.
func (s *Service) RequestAccess(ctx context.Context, doctor, patient ledger.Principal, ids []ledger.RecordID, reason string, durationSeconds int64) (string, error) {
	if err := doctor.Validate(); err != nil {
		return "", err
	}
	if err := patient.Validate(); err != nil {
		return "", err
	}
	if doctor == patient {
		return "", fmt.Errorf("%w: a patient cannot request access to its own records", ledger.ErrUnauthorized)
	}
	if len(ids) == 0 {
		return "", fmt.Errorf("%w: at least one record id is required", ledger.ErrInvalidArgument)
	}
	if err := checkDuration(durationSeconds); err != nil {
		return "", err
	}
	if s.maxDuration > 0 && durationSeconds > s.maxDuration {
		return "", fmt.Errorf("%w: duration exceeds %d seconds", ledger.ErrInvalidArgument, s.maxDuration)
	}
	ids = ledger.UniqueRecordIDs(ids)

	var id string
	err := s.tx.WithinPatient(ctx, patient, func(ctx context.Context) error {
		missing, err := s.records.MissingIDs(ctx, patient, ids)
		if err != nil {
			return err
		}
		if len(missing) > 0 {
			return fmt.Errorf("%w: record %s does not exist for %s", ledger.ErrInvalidArgument, missing[0], patient)
		}

		now := s.clock.Now()
		req := &AccessRequest{
			ID:              s.newID(ctx),
			Doctor:          doctor,
			Patient:         patient,
			RecordIDs:       ids,
			Reason:          reason,
			DurationSeconds: durationSeconds,
			CreatedAt:       now,
		}
		if err := s.repo.CreateRequest(ctx, req); err != nil {
			return fmt.Errorf("create access request: %w", err)
		}
		id = req.ID
		return s.audit.Record(ctx, audit.Event{
			Operation:  audit.OpRequestAccess,
			Caller:     doctor,
			Patient:    patient,
			Detail:     fmt.Sprintf("request %s for %d records", req.ID, len(ids)),
			OccurredAt: now,
		})
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// ApproveAccess approves the request on behalf of patient. The bundle is
// packaged before anything is written, so a packaging failure records nothing.
// The approval replaces any earlier access the doctor held on this patient.
func (s *Service) ApproveAccess(ctx context.Context, patient ledger.Principal, requestID string, opts ApproveOptions) (*ApprovedAccess, error) {
	req, err := s.repo.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Patient != patient {
		return nil, fmt.Errorf("%w: only the target patient may approve", ledger.ErrUnauthorized)
	}
	if req.Approved {
		return nil, alreadyApproved(requestID)
	}
	ids, duration, err := effectiveScope(req, opts)
	if err != nil {
		return nil, err
	}

	shared, err := s.records.SharedRecords(ctx, patient, ids)
	if err != nil {
		return nil, fmt.Errorf("snapshot records: %w", err)
	}
	ref, err := s.packager.CreateDoctorSharedData(ctx, shared, req.Doctor, ids)
	if err != nil {
		return nil, fmt.Errorf("package shared data: %w", err)
	}

	var access *ApprovedAccess
	err = s.tx.WithinPatient(ctx, patient, func(ctx context.Context) error {
		current, err := s.repo.GetRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if current.Approved {
			return alreadyApproved(requestID)
		}

		now := s.clock.Now()
		if err := s.repo.MarkApproved(ctx, current, now); err != nil {
			return fmt.Errorf("mark request approved: %w", err)
		}
		access = &ApprovedAccess{
			Doctor:        req.Doctor,
			Patient:       patient,
			RequestID:     requestID,
			RecordIDs:     ids,
			ExpiresAt:     now.Add(time.Duration(duration) * time.Second),
			SharedDataRef: ref,
			GrantedAt:     now,
		}
		if err := s.repo.PutApproved(ctx, access); err != nil {
			return fmt.Errorf("store approved access: %w", err)
		}
		return s.audit.Record(ctx, audit.Event{
			Operation:  audit.OpApproveAccess,
			Caller:     patient,
			Patient:    patient,
			Detail:     fmt.Sprintf("request %s for %s, %d records, %ds", requestID, req.Doctor, len(ids), duration),
			OccurredAt: now,
		})
	})
	if err != nil {
		return nil, err
	}
	return access, nil
}

func alreadyApproved(id string) error {
	return fmt.Errorf("%w: access request %s", ledger.ErrAlreadyApproved, id)
}

// effectiveScope applies the patient's narrowing and shortening to req.
func effectiveScope(req *AccessRequest, opts ApproveOptions) ([]ledger.RecordID, int64, error) {
	ids := req.RecordIDs
	if opts.RecordIDs != nil {
		if len(opts.RecordIDs) == 0 {
			return nil, 0, fmt.Errorf("%w: narrowed record set is empty", ledger.ErrInvalidArgument)
		}
		ids = ledger.UniqueRecordIDs(opts.RecordIDs)
		for _, id := range ids {
			if !ledger.ContainsRecordID(req.RecordIDs, id) {
				return nil, 0, fmt.Errorf("%w: record %s was not requested", ledger.ErrInvalidArgument, id)
			}
		}
	}

	duration := req.DurationSeconds
	if opts.DurationSeconds != nil {
		if err := checkDuration(*opts.DurationSeconds); err != nil {
			return nil, 0, err
		}
		if *opts.DurationSeconds < duration {
			duration = *opts.DurationSeconds
		}
	}
	return ids, duration, nil
}

// GetApprovedAccess returns the doctor's live access. Expired and absent
// access produce the same NotFound error.
func (s *Service) GetApprovedAccess(ctx context.Context, doctor, patient ledger.Principal) (*ApprovedAccess, error) {
	access, err := s.repo.GetApproved(ctx, doctor, patient)
	if err != nil {
		return nil, err
	}
	if !access.LiveAt(s.clock.Now()) {
		return nil, errNoAccess(doctor, patient)
	}
	return access, nil
}

// LiveRecordIDs lets the record ledger authorize scoped reads.
func (s *Service) LiveRecordIDs(ctx context.Context, doctor, patient ledger.Principal) ([]ledger.RecordID, error) {
	access, err := s.GetApprovedAccess(ctx, doctor, patient)
	if err != nil {
		return nil, err
	}
	return access.RecordIDs, nil
}

// GetRequest is visible to the requesting doctor and the target patient.
func (s *Service) GetRequest(ctx context.Context, caller ledger.Principal, id string) (*AccessRequest, error) {
	req, err := s.repo.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if caller != req.Doctor && caller != req.Patient {
		return nil, fmt.Errorf("%w: access request %s belongs to another party", ledger.ErrUnauthorized, id)
	}
	return req, nil
}

// ListRequests is restricted to the patient.
func (s *Service) ListRequests(ctx context.Context, caller, patient ledger.Principal, pendingOnly bool) ([]*AccessRequest, error) {
	if caller != patient {
		return nil, fmt.Errorf("%w: only the patient may list access requests", ledger.ErrUnauthorized)
	}
	all, err := s.repo.ListRequests(ctx, patient)
	if err != nil {
		return nil, err
	}
	out := make([]*AccessRequest, 0, len(all))
	for _, r := range all {
		if pendingOnly && r.Approved {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// OpenSharedData unpacks the bundle behind the doctor's live access.
func (s *Service) OpenSharedData(ctx context.Context, doctor, patient ledger.Principal) (*sharing.Bundle, error) {
	access, err := s.GetApprovedAccess(ctx, doctor, patient)
	if err != nil {
		return nil, err
	}
	bundle, err := s.packager.DecryptDoctorSharedData(ctx, access.SharedDataRef, doctor)
	if err != nil {
		return nil, fmt.Errorf("open shared data: %w", err)
	}
	return bundle, nil
}
