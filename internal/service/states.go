package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"ticketing/internal/clock"
	"ticketing/internal/database"
	apperrors "ticketing/internal/errors"
	"ticketing/internal/logger"
	"ticketing/internal/messaging"
	"ticketing/internal/models"
)

// StateService writes states and keeps the location cache in step.
// Cache entries of every affected country are evicted only after the
// write has committed.
type StateService struct {
	tx        database.Transactor
	states    StateStore
	countries CountryStore
	locations LocationCache
	publisher messaging.Publisher
	clock     clock.Clock
}

func NewStateService(deps Dependencies) *StateService {
	deps = deps.withDefaults()
	return &StateService{
		tx:        deps.Tx,
		states:    deps.States,
		countries: deps.Countries,
		locations: deps.Locations,
		publisher: deps.Publisher,
		clock:     deps.Clock,
	}
}

// BulkCreateResult lists the states created and the request rows skipped
type BulkCreateResult struct {
	Created []models.StateView `json:"created"`
	Skipped []string           `json:"skipped"`
}

// BulkDeleteResult counts removed states and lists ids that did not exist
type BulkDeleteResult struct {
	Deleted  int     `json:"deleted"`
	NotFound []int64 `json:"not_found"`
}

func validateStateRequest(req models.StateRequest) error {
	if strings.TrimSpace(req.Name) == "" || req.CountryID <= 0 {
		return apperrors.ErrInvalidState.WithMessage("invalid state data")
	}
	return nil
}

func (s *StateService) CreateState(ctx context.Context, req models.StateRequest) (*models.StateView, error) {
	if err := validateStateRequest(req); err != nil {
		return nil, err
	}

	state := &models.State{CountryID: req.CountryID, Name: strings.TrimSpace(req.Name)}
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		country, err := s.countries.GetByID(ctx, req.CountryID)
		if err != nil {
			return err
		}
		if country == nil {
			return apperrors.ErrCountryNotFound
		}
		state.Country = country

		exists, err := s.states.ExistsByName(ctx, req.CountryID, state.Name, 0)
		if err != nil {
			return err
		}
		if exists {
			return apperrors.ErrDuplicateState
		}
		return s.states.InsertMany(ctx, []*models.State{state})
	})
	if err != nil {
		return nil, stateError("create state", err)
	}

	s.afterWrite(ctx, models.StateOpCreated, []int64{state.ID}, req.CountryID)

	view := models.NewStateView(*state)
	return &view, nil
}

// CreateStates inserts every valid row of reqs in one transaction. Rows
// naming a missing country or an existing or repeated name are skipped and
// reported. It fails only when no row can be inserted.
func (s *StateService) CreateStates(ctx context.Context, reqs []models.StateRequest) (*BulkCreateResult, error) {
	if len(reqs) == 0 {
		return nil, apperrors.ErrInvalidState.WithMessage("no states provided")
	}

	result := &BulkCreateResult{Skipped: []string{}}
	var (
		toInsert []*models.State
		affected []int64
	)
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		countries := make(map[int64]*models.Country)
		taken := make(map[string]bool)
		for _, req := range reqs {
			if _, seen := countries[req.CountryID]; seen {
				continue
			}
			country, err := s.countries.GetByID(ctx, req.CountryID)
			if err != nil {
				return err
			}
			countries[req.CountryID] = country
			if country == nil {
				continue
			}
			existing, err := s.states.ListByCountry(ctx, req.CountryID, models.StateIncludes{})
			if err != nil {
				return err
			}
			for _, st := range existing {
				taken[stateKey(st.CountryID, st.Name)] = true
			}
		}

		processed := make(map[string]bool)
		for _, req := range reqs {
			name := strings.TrimSpace(req.Name)
			key := stateKey(req.CountryID, name)
			switch {
			case name == "":
				result.Skipped = append(result.Skipped, fmt.Sprintf("State name is required for country ID %d.", req.CountryID))
			case countries[req.CountryID] == nil:
				result.Skipped = append(result.Skipped, fmt.Sprintf("Country ID %d not found for state '%s'.", req.CountryID, name))
			case taken[key]:
				result.Skipped = append(result.Skipped, fmt.Sprintf("State '%s' already exists in country ID %d.", name, req.CountryID))
			case processed[key]:
				result.Skipped = append(result.Skipped, fmt.Sprintf("Duplicate state '%s' for country ID %d in the request.", name, req.CountryID))
			default:
				processed[key] = true
				toInsert = append(toInsert, &models.State{
					CountryID: req.CountryID,
					Name:      name,
					Country:   countries[req.CountryID],
				})
				affected = appendUnique(affected, req.CountryID)
			}
		}

		if len(toInsert) == 0 {
			return apperrors.ErrInvalidState.WithMessage("no states could be created").WithDetails(result.Skipped...)
		}
		return s.states.InsertMany(ctx, toInsert)
	})
	if err != nil {
		return nil, stateError("create states", err)
	}

	ids := make([]int64, len(toInsert))
	result.Created = make([]models.StateView, len(toInsert))
	for i, st := range toInsert {
		ids[i] = st.ID
		result.Created[i] = models.NewStateView(*st)
	}
	s.afterWrite(ctx, models.StateOpCreated, ids, affected...)

	return result, nil
}

// UpdateState renames a state or moves it to another country. Both the
// old and the new country are invalidated.
func (s *StateService) UpdateState(ctx context.Context, id int64, req models.StateRequest) (*models.StateView, error) {
	if err := validateStateRequest(req); err != nil {
		return nil, err
	}

	var (
		state      *models.State
		oldCountry int64
	)
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		state, err = s.states.GetByID(ctx, id, models.StateIncludes{})
		if err != nil {
			return err
		}
		if state == nil {
			return apperrors.ErrStateNotFound
		}
		oldCountry = state.CountryID

		country, err := s.countries.GetByID(ctx, req.CountryID)
		if err != nil {
			return err
		}
		if country == nil {
			return apperrors.ErrCountryNotFound
		}

		name := strings.TrimSpace(req.Name)
		exists, err := s.states.ExistsByName(ctx, req.CountryID, name, id)
		if err != nil {
			return err
		}
		if exists {
			return apperrors.ErrDuplicateState
		}

		state.Name = name
		state.CountryID = req.CountryID
		state.Country = country
		return s.states.Update(ctx, state)
	})
	if err != nil {
		return nil, stateError("update state", err)
	}

	s.afterWrite(ctx, models.StateOpUpdated, []int64{id}, appendUnique([]int64{oldCountry}, req.CountryID)...)

	view := models.NewStateView(*state)
	return &view, nil
}

func (s *StateService) DeleteState(ctx context.Context, id int64) error {
	var countryID int64
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		state, err := s.states.GetByID(ctx, id, models.StateIncludes{})
		if err != nil {
			return err
		}
		if state == nil {
			return apperrors.ErrStateNotFound
		}
		countryID = state.CountryID
		_, err = s.states.DeleteMany(ctx, []int64{id})
		return err
	})
	if err != nil {
		return stateError("delete state", err)
	}

	s.afterWrite(ctx, models.StateOpDeleted, []int64{id}, countryID)
	return nil
}

// DeleteStates removes the existing states among ids and reports the rest
func (s *StateService) DeleteStates(ctx context.Context, ids []int64) (*BulkDeleteResult, error) {
	if len(ids) == 0 {
		return nil, apperrors.ErrInvalidState.WithMessage("no state ids provided")
	}

	var distinct []int64
	for _, id := range ids {
		distinct = appendUnique(distinct, id)
	}

	var (
		found    []int64
		affected []int64
	)
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		states, err := s.states.GetByIDs(ctx, distinct)
		if err != nil {
			return err
		}
		if len(states) == 0 {
			return apperrors.ErrStateNotFound.WithMessage("no states found to delete")
		}

		for _, st := range states {
			found = append(found, st.ID)
			affected = appendUnique(affected, st.CountryID)
		}
		_, err = s.states.DeleteMany(ctx, found)
		return err
	})
	if err != nil {
		return nil, stateError("delete states", err)
	}

	deleted := make(map[int64]bool, len(found))
	for _, id := range found {
		deleted[id] = true
	}
	result := &BulkDeleteResult{Deleted: len(found), NotFound: []int64{}}
	for _, id := range distinct {
		if !deleted[id] {
			result.NotFound = append(result.NotFound, id)
		}
	}

	s.afterWrite(ctx, models.StateOpDeleted, found, affected...)
	return result, nil
}

// ListStatesByCountry serves the country's states from the location cache
func (s *StateService) ListStatesByCountry(ctx context.Context, countryID int64) ([]models.StateView, error) {
	country, err := s.countries.GetByID(ctx, countryID)
	if err != nil {
		return nil, apperrors.Persistence("get country", err)
	}
	if country == nil {
		return nil, apperrors.ErrCountryNotFound
	}

	views, err := s.locations.ListStatesByCountry(ctx, countryID)
	if err != nil {
		return nil, apperrors.Persistence("list states", err)
	}
	return views, nil
}

// IsValidState reports whether the state belongs to the country
func (s *StateService) IsValidState(ctx context.Context, countryID, stateID int64) (bool, error) {
	ok, err := s.locations.IsValidState(ctx, countryID, stateID)
	if err != nil {
		return false, apperrors.Persistence("validate state", err)
	}
	return ok, nil
}

// afterWrite runs once the write has committed
func (s *StateService) afterWrite(ctx context.Context, op string, stateIDs []int64, countryIDs ...int64) {
	sort.Slice(countryIDs, func(i, j int) bool { return countryIDs[i] < countryIDs[j] })
	s.locations.InvalidateCountry(countryIDs...)

	logger.WithContext(ctx).Info("States changed",
		"operation", op, "state_ids", stateIDs, "country_ids", countryIDs)

	publish(ctx, s.publisher, models.EventStatesChanged, models.StatesChangedEvent{
		CountryIDs: countryIDs,
		StateIDs:   stateIDs,
		Operation:  op,
		Timestamp:  s.clock.Now(),
	})
}

func stateKey(countryID int64, name string) string {
	return fmt.Sprintf("%d_%s", countryID, name)
}

func appendUnique(ids []int64, id int64) []int64 {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}

func stateError(op string, err error) error {
	if apperrors.KindOf(err) != apperrors.KindUnknown {
		return err
	}
	if database.IsUniqueViolation(err) {
		return apperrors.ErrDuplicateState
	}
	return apperrors.Persistence(op, err)
}
