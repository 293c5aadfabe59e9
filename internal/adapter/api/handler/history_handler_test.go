package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"github.com/arimusic/playledger/internal/domain"
	"github.com/arimusic/playledger/internal/domain/mocks"
	"github.com/arimusic/playledger/internal/usecase"
)

func sealedBatch(t *testing.T, store *mocks.MockContentStore, logs ...domain.PlayLog) string {
	t.Helper()
	data, err := domain.EncodeBatch(domain.BatchPayload{PlayLogs: logs}, false)
	if err != nil {
		t.Fatalf("failed to encode batch: %v", err)
	}
	cid, err := store.Put(context.Background(), data)
	if err != nil {
		t.Fatalf("failed to store batch: %v", err)
	}
	return cid
}

func historyRequest(trackID string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/tracks/"+trackID+"/history", nil)
	req.SetPathValue("trackId", trackID)
	return req
}

func TestHistoryHandler(t *testing.T) {
	base := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

	t.Run("Successful Query", func(t *testing.T) {
		store := &mocks.MockContentStore{}
		cid := sealedBatch(t, store,
			domain.PlayLog{Timestamp: base, MemberID: "101", TrackID: 7, TrackTitle: "First Light", Nickname: "mina"},
			domain.PlayLog{Timestamp: base.Add(time.Minute), MemberID: "102", TrackID: 9, TrackTitle: "Undertow", Nickname: "jae"},
		)
		provider := &mocks.MockPointerProvider{CIDs: []string{cid}}
		uc := usecase.NewHistoryUseCase(provider, store, testLogger())
		h := NewHistoryHandler(uc, "index", testLogger(), nil)

		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, historyRequest("7"))

		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
		}
		if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected application/json, got %q", ct)
		}

		var resp struct {
			TrackID  int              `json:"trackId"`
			PlayLogs []domain.PlayLog `json:"playLogs"`
		}
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unparseable response: %v", err)
		}
		if resp.TrackID != 7 {
			t.Errorf("expected trackId 7, got %d", resp.TrackID)
		}
		if len(resp.PlayLogs) != 1 || resp.PlayLogs[0].MemberID != "101" {
			t.Errorf("unexpected play logs: %+v", resp.PlayLogs)
		}
	})

	t.Run("No Plays Is An Empty List", func(t *testing.T) {
		uc := usecase.NewHistoryUseCase(&mocks.MockPointerProvider{}, &mocks.MockContentStore{}, testLogger())
		h := NewHistoryHandler(uc, "index", testLogger(), nil)

		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, historyRequest("42"))

		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}

		var resp struct {
			PlayLogs []domain.PlayLog `json:"playLogs"`
		}
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unparseable response: %v", err)
		}
		if resp.PlayLogs == nil || len(resp.PlayLogs) != 0 {
			t.Errorf("expected an empty playLogs array, got %v", resp.PlayLogs)
		}
	})

	t.Run("Invalid Track ID", func(t *testing.T) {
		uc := usecase.NewHistoryUseCase(&mocks.MockPointerProvider{}, &mocks.MockContentStore{}, testLogger())
		h := NewHistoryHandler(uc, "index", testLogger(), nil)

		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, historyRequest("seven"))

		if rr.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rr.Code)
		}
	})

	t.Run("Corrupt Batch", func(t *testing.T) {
		store := &mocks.MockContentStore{Objects: map[string][]byte{"QmCorrupt": []byte("not json")}}
		provider := &mocks.MockPointerProvider{CIDs: []string{"QmCorrupt"}}
		uc := usecase.NewHistoryUseCase(provider, store, testLogger())
		h := NewHistoryHandler(uc, "index", testLogger(), nil)

		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, historyRequest("7"))

		if rr.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", rr.Code)
		}
	})

	t.Run("Fetch Failure Is A Bad Gateway", func(t *testing.T) {
		store := &mocks.MockContentStore{GetErr: domain.ErrFetchFailed}
		provider := &mocks.MockPointerProvider{CIDs: []string{"QmGone"}}
		uc := usecase.NewHistoryUseCase(provider, store, testLogger())
		h := NewHistoryHandler(uc, "index", testLogger(), nil)

		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, historyRequest("7"))

		if rr.Code != http.StatusBadGateway {
			t.Fatalf("expected 502, got %d", rr.Code)
		}
	})

	t.Run("Ledger Failure Is A Bad Gateway", func(t *testing.T) {
		provider := &mocks.MockPointerProvider{ListErr: domain.ErrLedgerQueryFailed}
		uc := usecase.NewHistoryUseCase(provider, &mocks.MockContentStore{}, testLogger())
		h := NewHistoryHandler(uc, "ledger", testLogger(), nil)

		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, historyRequest("7"))

		if rr.Code != http.StatusBadGateway {
			t.Fatalf("expected 502, got %d", rr.Code)
		}
	})
}
