package main

import (
	"fmt"
	"net/http"

	"github.com/kopiplan/kopiplan/internal/bus"
	"github.com/kopiplan/kopiplan/internal/finance"
)

// planConfig is the per-business planning singleton. The row is created with
// defaults on first access and only ever updated in place.
type planConfig struct {
	PricePerServing int64
	DaysPerMonth    int64
	DailyTarget     int64
}

type planViewData struct {
	baseViewData
	Plan planConfig
}

type bonusViewData struct {
	baseViewData
	Scheme finance.BonusScheme
}

func (s *server) ensurePlanConfig(businessID string) error {
	_, err := s.db.Exec(`
		INSERT INTO plan_config (business_id)
		VALUES (?)
		ON CONFLICT(business_id) DO NOTHING
	`, businessID)
	if err != nil {
		return fmt.Errorf("insert default plan_config: %w", err)
	}
	return nil
}

func (s *server) getPlanConfig(businessID string) (planConfig, error) {
	if err := s.ensurePlanConfig(businessID); err != nil {
		return planConfig{}, err
	}

	var pc planConfig
	err := s.db.QueryRow(`
		SELECT price_per_serving, days_per_month, daily_target
		FROM plan_config
		WHERE business_id = ?
	`, businessID).Scan(&pc.PricePerServing, &pc.DaysPerMonth, &pc.DailyTarget)
	if err != nil {
		return planConfig{}, fmt.Errorf("query plan_config: %w", err)
	}
	return pc, nil
}

func (s *server) updatePlanConfig(businessID string, pc planConfig) error {
	if err := s.ensurePlanConfig(businessID); err != nil {
		return err
	}

	_, err := s.db.Exec(`
		UPDATE plan_config
		SET
			price_per_serving = ?,
			days_per_month = ?,
			daily_target = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE business_id = ?
	`, pc.PricePerServing, pc.DaysPerMonth, pc.DailyTarget, businessID)
	if err != nil {
		return fmt.Errorf("update plan_config: %w", err)
	}
	return nil
}

func (s *server) handlePlanForm(w http.ResponseWriter, r *http.Request) {
	businessID, err := s.currentBusinessID(r)
	if err != nil {
		s.serverError(w, "failed to resolve business", err)
		return
	}

	plan, err := s.getPlanConfig(businessID)
	if err != nil {
		s.serverError(w, "failed to load plan config", err)
		return
	}

	name, err := s.businessName(businessID)
	if err != nil {
		s.serverError(w, "failed to load business", err)
		return
	}

	s.renderTemplate(w, "plan.html", planViewData{
		baseViewData: baseViewData{BusinessName: name},
		Plan:         plan,
	})
}

func (s *server) handlePlanSubmit(w http.ResponseWriter, r *http.Request) {
	businessID, err := s.currentBusinessID(r)
	if err != nil {
		s.serverError(w, "failed to resolve business", err)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	plan, validationErr := parsePlanConfigForm(r)
	if validationErr != nil {
		w.WriteHeader(http.StatusBadRequest)
		s.renderTemplate(w, "plan.html", planViewData{
			baseViewData: baseViewData{ErrorMessage: validationErr.Error()},
			Plan:         plan,
		})
		return
	}

	if err := s.updatePlanConfig(businessID, plan); err != nil {
		s.serverError(w, "failed to save plan config", err)
		return
	}

	s.events.Publish(bus.Event{Topic: bus.TopicPlanChanged, BusinessID: businessID})
	s.renderTemplate(w, "plan.html", planViewData{
		baseViewData: baseViewData{SuccessMessage: "Plan saved"},
		Plan:         plan,
	})
}

func parsePlanConfigForm(r *http.Request) (planConfig, error) {
	var pc planConfig

	var err error
	if pc.PricePerServing, err = parseNonNegativeInt(r.FormValue("price_per_serving"), "price_per_serving"); err != nil {
		return pc, err
	}
	if pc.DaysPerMonth, err = parseNonNegativeInt(r.FormValue("days_per_month"), "days_per_month"); err != nil {
		return pc, err
	}
	if pc.DailyTarget, err = parseNonNegativeInt(r.FormValue("daily_target"), "daily_target"); err != nil {
		return pc, err
	}
	if pc.DaysPerMonth > 31 {
		return pc, fmt.Errorf("days_per_month must be at most 31")
	}

	return pc, nil
}

func (s *server) getBonusScheme(businessID string) (finance.BonusScheme, error) {
	var scheme finance.BonusScheme
	err := s.db.QueryRow(`
		SELECT target, per_serving_bonus, barista_count, COALESCE(note, '')
		FROM bonus_schemes
		WHERE business_id = ?
	`, businessID).Scan(&scheme.Target, &scheme.PerServingBonus, &scheme.BaristaCount, &scheme.Note)
	if err != nil {
		return finance.BonusScheme{}, fmt.Errorf("query bonus scheme: %w", err)
	}
	return scheme, nil
}

// replaceBonusScheme swaps the whole singleton; the scheme is never patched
// field by field.
func (s *server) replaceBonusScheme(businessID string, scheme finance.BonusScheme) error {
	_, err := s.db.Exec(`
		INSERT INTO bonus_schemes (business_id, target, per_serving_bonus, barista_count, note, updated_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(business_id) DO UPDATE SET
			target = excluded.target,
			per_serving_bonus = excluded.per_serving_bonus,
			barista_count = excluded.barista_count,
			note = excluded.note,
			updated_at = CURRENT_TIMESTAMP
	`, businessID, scheme.Target, scheme.PerServingBonus, scheme.BaristaCount, scheme.Note)
	if err != nil {
		return fmt.Errorf("replace bonus scheme: %w", err)
	}
	return nil
}

func (s *server) handleBonusForm(w http.ResponseWriter, r *http.Request) {
	businessID, err := s.currentBusinessID(r)
	if err != nil {
		s.serverError(w, "failed to resolve business", err)
		return
	}

	scheme, err := s.getBonusScheme(businessID)
	if err != nil {
		s.serverError(w, "failed to load bonus scheme", err)
		return
	}

	name, err := s.businessName(businessID)
	if err != nil {
		s.serverError(w, "failed to load business", err)
		return
	}

	s.renderTemplate(w, "bonus.html", bonusViewData{
		baseViewData: baseViewData{BusinessName: name},
		Scheme:       scheme,
	})
}

func (s *server) handleBonusSubmit(w http.ResponseWriter, r *http.Request) {
	businessID, err := s.currentBusinessID(r)
	if err != nil {
		s.serverError(w, "failed to resolve business", err)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	scheme, validationErr := parseBonusSchemeForm(r)
	if validationErr != nil {
		w.WriteHeader(http.StatusBadRequest)
		s.renderTemplate(w, "bonus.html", bonusViewData{
			baseViewData: baseViewData{ErrorMessage: validationErr.Error()},
			Scheme:       scheme,
		})
		return
	}

	if err := s.replaceBonusScheme(businessID, scheme); err != nil {
		s.serverError(w, "failed to save bonus scheme", err)
		return
	}

	s.events.Publish(bus.Event{Topic: bus.TopicBonusChanged, BusinessID: businessID})
	s.renderTemplate(w, "bonus.html", bonusViewData{
		baseViewData: baseViewData{SuccessMessage: "Bonus scheme saved"},
		Scheme:       scheme,
	})
}

func parseBonusSchemeForm(r *http.Request) (finance.BonusScheme, error) {
	scheme := finance.BonusScheme{
		Note: r.FormValue("note"),
	}

	var err error
	if scheme.Target, err = parseNonNegativeInt(r.FormValue("target"), "target"); err != nil {
		return scheme, err
	}
	if scheme.PerServingBonus, err = parseNonNegativeInt(r.FormValue("per_serving_bonus"), "per_serving_bonus"); err != nil {
		return scheme, err
	}
	if scheme.BaristaCount, err = parsePositiveInt(r.FormValue("barista_count"), "barista_count"); err != nil {
		return scheme, err
	}

	return scheme, nil
}
