package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"stylistapi/models"
)

const (
	MaxTopsSuggestions    = 4
	MaxBottomsSuggestions = 4
	MaxFullSets           = 3
)

// user-facing failures of the discovery and try-on flows
var (
	ErrNoPersonImage    = errors.New("please upload your photo first")
	ErrNoGarmentImage   = errors.New("garment image is missing")
	ErrEmptyQuery       = errors.New("please describe what you are looking for")
	ErrNoCandidates     = errors.New("no suitable garments found, try different keywords")
	ErrSessionNotFound  = errors.New("session not found or expired")
	ErrInvalidSelection = errors.New("selected item is out of range")
)

// StylistSession holds the per-user state of one styling conversation: the
// normalized person photo and the last discovery results the try-on endpoints
// index into. All access goes through the mutex.
type StylistSession struct {
	mu sync.Mutex

	Key          string
	RecordID     uint
	Profile      models.UserProfile
	Requirements models.QueryRequirements
	Plan         models.KeywordPlan
	PersonImage  *models.ImageData
	Tops         []models.Candidate
	Bottoms      []models.Candidate
	OutfitSets   []models.OutfitSet
	StylingTips  string
}

func (s *StylistSession) SetPersonImage(img *models.ImageData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.PersonImage = img
}

func (s *StylistSession) Person() *models.ImageData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.PersonImage
}

// Candidate returns the garment at index within the category pool, or an
// error when the category is unknown or the index is out of range.
func (s *StylistSession) Candidate(category string, index int) (models.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var pool []models.Candidate
	switch category {
	case models.CategoryTops:
		pool = s.Tops
	case models.CategoryBottoms:
		pool = s.Bottoms
	default:
		return models.Candidate{}, fmt.Errorf("%w: unknown category %q", ErrInvalidSelection, category)
	}
	if index < 0 || index >= len(pool) {
		return models.Candidate{}, fmt.Errorf("%w: index %d of %d %s", ErrInvalidSelection, index, len(pool), category)
	}
	return pool[index], nil
}

// OutfitSet returns the recommended pairing at setIndex along with its
// resolved top and bottom candidates.
func (s *StylistSession) OutfitSet(setIndex int) (models.OutfitSet, models.Candidate, models.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if setIndex < 0 || setIndex >= len(s.OutfitSets) {
		return models.OutfitSet{}, models.Candidate{}, models.Candidate{}, fmt.Errorf("%w: set %d of %d", ErrInvalidSelection, setIndex, len(s.OutfitSets))
	}
	set := s.OutfitSets[setIndex]
	// indexes were validated against the pools when the plan was stored
	return set, s.Tops[set.TopIndex], s.Bottoms[set.BottomIndex], nil
}

func (s *StylistSession) setDiscovery(profile models.UserProfile, req models.QueryRequirements, plan models.KeywordPlan, tops, bottoms []models.Candidate, sets []models.OutfitSet, tips string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Profile = profile
	s.Requirements = req
	s.Plan = plan
	s.Tops = tops
	s.Bottoms = bottoms
	s.OutfitSets = sets
	s.StylingTips = tips
}

// SessionStore is an in-memory registry of styling sessions keyed by opaque
// session keys.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*StylistSession
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*StylistSession)}
}

func (st *SessionStore) Create() *StylistSession {
	session := &StylistSession{Key: uuid.NewString()}
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sessions[session.Key] = session
	return session
}

func (st *SessionStore) Get(key string) (*StylistSession, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	session, ok := st.sessions[key]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

func (st *SessionStore) Delete(key string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, key)
}

// FindOutfitsResult is what one discovery run produces.
type FindOutfitsResult struct {
	Profile          models.UserProfile       `json:"profile"`
	Requirements     models.QueryRequirements `json:"requirements"`
	Plan             models.KeywordPlan       `json:"keyword_plan"`
	Tops             []models.Candidate       `json:"tops"`
	Bottoms          []models.Candidate       `json:"bottoms"`
	TopSelection     *models.OutfitSelection  `json:"top_selection,omitempty"`
	BottomSelection  *models.OutfitSelection  `json:"bottom_selection,omitempty"`
	OutfitSets       []models.OutfitSet       `json:"outfit_sets"`
	OverallStyleTips string                   `json:"overall_styling_tips"`
}

// StylistService wires the analysis, search and composition collaborators
// into the end-to-end flows the API exposes.
type StylistService struct {
	Analyzer StylistAnalyzer
	Search   *SearchService
	VTO      *VTOService
	Sessions *SessionStore
}

func NewStylistService(analyzer StylistAnalyzer, search *SearchService, vto *VTOService) *StylistService {
	return &StylistService{
		Analyzer: analyzer,
		Search:   search,
		VTO:      vto,
		Sessions: NewSessionStore(),
	}
}

// FindOutfits runs the full discovery pipeline for one query: profile and
// query analysis, keyword generation, cached search, image resolution,
// per-category selection and outfit pairing. The results are stored on the
// session for the try-on endpoints.
func (s *StylistService) FindOutfits(ctx context.Context, session *StylistSession, query string, profile *models.UserProfile) (*FindOutfitsResult, error) {
	person := session.Person()
	if person == nil {
		return nil, ErrNoPersonImage
	}
	if query == "" {
		return nil, ErrEmptyQuery
	}

	var userProfile models.UserProfile
	if profile != nil && (profile.BodyShape != "" || profile.SkinTone != "" || profile.Gender != "") {
		userProfile = normalizeProfile(*profile)
	} else {
		fmt.Println("[Stylist] Analyzing person photo")
		userProfile = s.Analyzer.AnalyzeProfile(ctx, person)
	}

	requirements := s.Analyzer.AnalyzeQuery(ctx, query)
	plan := s.Analyzer.GenerateKeywords(ctx, userProfile, requirements)
	fmt.Printf("[Stylist] Keywords tops=%v bottoms=%v\n", plan.TopsKeywords, plan.BottomsKeywords)

	topResults := s.Search.SearchMany(ctx, plan.TopsKeywords, ResultsPerKeyword)
	bottomResults := s.Search.SearchMany(ctx, plan.BottomsKeywords, ResultsPerKeyword)

	tops := s.Search.ResolveImages(ctx, topResults, MaxTopsSuggestions)
	bottoms := s.Search.ResolveImages(ctx, bottomResults, MaxBottomsSuggestions)
	fmt.Printf("[Stylist] Resolved %d tops, %d bottoms\n", len(tops), len(bottoms))

	if len(tops) == 0 && len(bottoms) == 0 {
		return nil, ErrNoCandidates
	}

	result := &FindOutfitsResult{
		Profile:      userProfile,
		Requirements: requirements,
		Plan:         plan,
		Tops:         tops,
		Bottoms:      bottoms,
	}
	if len(tops) > 0 {
		selection := s.Analyzer.SelectOutfit(ctx, tops, userProfile, requirements)
		result.TopSelection = &selection
	}
	if len(bottoms) > 0 {
		selection := s.Analyzer.SelectOutfit(ctx, bottoms, userProfile, requirements)
		result.BottomSelection = &selection
	}
	if len(tops) > 0 && len(bottoms) > 0 {
		outfitPlan := s.Analyzer.RecommendOutfitSets(ctx, tops, bottoms, userProfile, requirements, MaxFullSets)
		// the stored sets must index into the resolved pools no matter what
		// the analyzer produced
		result.OutfitSets = validOutfitSets(outfitPlan.OutfitSets, len(tops), len(bottoms), MaxFullSets)
		result.OverallStyleTips = outfitPlan.OverallStylingTips
	}

	session.setDiscovery(userProfile, requirements, plan, tops, bottoms, result.OutfitSets, result.OverallStyleTips)
	return result, nil
}

// TryOnGarment composes one discovered garment onto the session's person
// photo.
func (s *StylistService) TryOnGarment(ctx context.Context, session *StylistSession, category string, index int, params models.SamplingParams) (*models.ImageData, models.TokenUsage, error) {
	var usage models.TokenUsage
	person := session.Person()
	if person == nil {
		return nil, usage, ErrNoPersonImage
	}
	candidate, err := session.Candidate(category, index)
	if err != nil {
		return nil, usage, err
	}
	if candidate.Image == nil {
		return nil, usage, ErrNoGarmentImage
	}
	return s.VTO.TryOn(ctx, person, candidate.Image, category, "", params)
}

// TryOnSet composes a recommended outfit pairing, top first then bottom.
func (s *StylistService) TryOnSet(ctx context.Context, session *StylistSession, setIndex int, params models.SamplingParams) (*models.ImageData, models.TokenUsage, error) {
	var usage models.TokenUsage
	person := session.Person()
	if person == nil {
		return nil, usage, ErrNoPersonImage
	}
	_, top, bottom, err := session.OutfitSet(setIndex)
	if err != nil {
		return nil, usage, err
	}
	if top.Image == nil || bottom.Image == nil {
		return nil, usage, ErrNoGarmentImage
	}
	return s.VTO.TryOnFullSet(ctx, person, top.Image, bottom.Image, params)
}
