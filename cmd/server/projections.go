package main

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/kopiplan/kopiplan/internal/bus"
	"github.com/kopiplan/kopiplan/internal/finance"
	"github.com/kopiplan/kopiplan/internal/report"
)

// projectionMemo caches the projection sweep per business. The sweep is a
// pure function of persisted inputs, so entries stay valid until an input
// changes; the bus subscriptions are the only invalidation path.
type projectionMemo struct {
	mu   sync.Mutex
	rows map[string][]finance.ProjectionRow
}

func newProjectionMemo(events *bus.Bus) *projectionMemo {
	m := &projectionMemo{rows: make(map[string][]finance.ProjectionRow)}

	invalidate := func(ev bus.Event) { m.invalidate(ev.BusinessID) }
	for _, topic := range []bus.Topic{
		bus.TopicCostItemsChanged,
		bus.TopicBonusChanged,
		bus.TopicPlanChanged,
		bus.TopicAssetsChanged,
	} {
		events.Subscribe(topic, invalidate)
	}

	return m
}

func (m *projectionMemo) get(businessID string) ([]finance.ProjectionRow, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows, ok := m.rows[businessID]
	return rows, ok
}

func (m *projectionMemo) put(businessID string, rows []finance.ProjectionRow) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[businessID] = rows
}

func (m *projectionMemo) invalidate(businessID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, businessID)
}

// projectionConfig assembles the calculation inputs from persisted state.
func (s *server) projectionConfig(businessID string) (finance.ProjectionConfig, error) {
	plan, err := s.getPlanConfig(businessID)
	if err != nil {
		return finance.ProjectionConfig{}, err
	}
	scheme, err := s.getBonusScheme(businessID)
	if err != nil {
		return finance.ProjectionConfig{}, err
	}
	fixedItems, err := s.listFixedItems(businessID)
	if err != nil {
		return finance.ProjectionConfig{}, err
	}
	cogsItems, err := s.listVariableItems(businessID)
	if err != nil {
		return finance.ProjectionConfig{}, err
	}

	return finance.ProjectionConfig{
		DaysPerMonth:    plan.DaysPerMonth,
		PricePerServing: plan.PricePerServing,
		FixedItems:      fixedItems,
		COGSItems:       cogsItems,
		Bonus:           scheme,
	}, nil
}

func (s *server) projectionRows(businessID string, cfg finance.ProjectionConfig) []finance.ProjectionRow {
	if rows, ok := s.memo.get(businessID); ok {
		return rows
	}
	rows := finance.GenerateProjections(cfg)
	s.memo.put(businessID, rows)
	return rows
}

type projectionsViewData struct {
	baseViewData
	Rows           []finance.ProjectionRow
	FixedTotal     int64
	CostPerServing int64
	Plan           planConfig
	Scheme         finance.BonusScheme
}

func (s *server) handleProjections(w http.ResponseWriter, r *http.Request) {
	businessID, err := s.currentBusinessID(r)
	if err != nil {
		s.serverError(w, "failed to resolve business", err)
		return
	}

	cfg, err := s.projectionConfig(businessID)
	if err != nil {
		s.serverError(w, "failed to load projection inputs", err)
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

	s.renderTemplate(w, "projections.html", projectionsViewData{
		baseViewData:   baseViewData{BusinessName: name},
		Rows:           s.projectionRows(businessID, cfg),
		FixedTotal:     finance.FixedCostsTotal(cfg.FixedItems),
		CostPerServing: finance.TotalCostPerServing(cfg.COGSItems),
		Plan:           plan,
		Scheme:         cfg.Bonus,
	})
}

func (s *server) handleProjectionsPDF(w http.ResponseWriter, r *http.Request) {
	businessID, err := s.currentBusinessID(r)
	if err != nil {
		s.serverError(w, "failed to resolve business", err)
		return
	}

	cfg, err := s.projectionConfig(businessID)
	if err != nil {
		s.serverError(w, "failed to load projection inputs", err)
		return
	}

	name, err := s.businessName(businessID)
	if err != nil {
		s.serverError(w, "failed to load business", err)
		return
	}

	data, err := report.ProjectionPDF(name, cfg, s.projectionRows(businessID, cfg))
	if err != nil {
		s.serverError(w, "failed to render projection report", err)
		return
	}

	servePDF(w, "projections.pdf", data)
}

type shoppingViewData struct {
	baseViewData
	List        finance.ShoppingList
	DailyTarget int64
}

func (s *server) handleShoppingList(w http.ResponseWriter, r *http.Request) {
	businessID, err := s.currentBusinessID(r)
	if err != nil {
		s.serverError(w, "failed to resolve business", err)
		return
	}

	list, target, err := s.shoppingList(businessID)
	if err != nil {
		s.serverError(w, "failed to build shopping list", err)
		return
	}

	name, err := s.businessName(businessID)
	if err != nil {
		s.serverError(w, "failed to load business", err)
		return
	}

	s.renderTemplate(w, "shopping.html", shoppingViewData{
		baseViewData: baseViewData{BusinessName: name},
		List:         list,
		DailyTarget:  target,
	})
}

func (s *server) handleShoppingListPDF(w http.ResponseWriter, r *http.Request) {
	businessID, err := s.currentBusinessID(r)
	if err != nil {
		s.serverError(w, "failed to resolve business", err)
		return
	}

	list, target, err := s.shoppingList(businessID)
	if err != nil {
		s.serverError(w, "failed to build shopping list", err)
		return
	}

	name, err := s.businessName(businessID)
	if err != nil {
		s.serverError(w, "failed to load business", err)
		return
	}

	data, err := report.ShoppingListPDF(name, target, list)
	if err != nil {
		s.serverError(w, "failed to render shopping list report", err)
		return
	}

	servePDF(w, "shopping-list.pdf", data)
}

func (s *server) shoppingList(businessID string) (finance.ShoppingList, int64, error) {
	plan, err := s.getPlanConfig(businessID)
	if err != nil {
		return finance.ShoppingList{}, 0, err
	}
	items, err := s.listVariableItems(businessID)
	if err != nil {
		return finance.ShoppingList{}, 0, err
	}
	return finance.GenerateShoppingList(items, float64(plan.DailyTarget)), plan.DailyTarget, nil
}

func servePDF(w http.ResponseWriter, filename string, data []byte) {
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}

type homeViewData struct {
	baseViewData
	Plan         planConfig
	TargetRow    finance.ProjectionRow
	FixedTotal   int64
	CapitalTotal int64
	CostPerCup   int64
	Shopping     finance.ShoppingList
}

// handleHome shows the plan at the configured daily target: one projection
// row plus the day's purchasing needs.
func (s *server) handleHome(w http.ResponseWriter, r *http.Request) {
	businessID, err := s.currentBusinessID(r)
	if err != nil {
		s.serverError(w, "failed to resolve business", err)
		return
	}

	cfg, err := s.projectionConfig(businessID)
	if err != nil {
		s.serverError(w, "failed to load projection inputs", err)
		return
	}

	plan, err := s.getPlanConfig(businessID)
	if err != nil {
		s.serverError(w, "failed to load plan config", err)
		return
	}

	capitalItems, err := s.listCapitalItems(businessID)
	if err != nil {
		s.serverError(w, "failed to load capital items", err)
		return
	}
	var capitalTotal int64
	for _, it := range capitalItems {
		capitalTotal += it.Value
	}

	list, _, err := s.shoppingList(businessID)
	if err != nil {
		s.serverError(w, "failed to build shopping list", err)
		return
	}

	name, err := s.businessName(businessID)
	if err != nil {
		s.serverError(w, "failed to load business", err)
		return
	}

	s.renderTemplate(w, "home.html", homeViewData{
		baseViewData: baseViewData{BusinessName: name},
		Plan:         plan,
		TargetRow:    finance.ProjectAt(cfg, plan.DailyTarget),
		FixedTotal:   finance.FixedCostsTotal(cfg.FixedItems),
		CapitalTotal: capitalTotal,
		CostPerCup:   finance.TotalCostPerServing(cfg.COGSItems),
		Shopping:     list,
	})
}
