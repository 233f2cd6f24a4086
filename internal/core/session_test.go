// ABOUTME: Tests for Session epoch checks
// ABOUTME: Late writes from an abandoned selection must be dropped

package core

import (
	"testing"

	"github.com/harper/querychat/internal/models"
)

func TestSession_SelectClearsState(t *testing.T) {
	s := NewSession()
	epoch := s.Select("p1", "c1")

	msg := models.Message{ID: "m1", Role: models.RoleUser, Content: "hi"}
	if !s.AppendMessage(epoch, msg) {
		t.Fatal("AppendMessage() rejected current epoch")
	}
	s.SetStreaming(epoch, models.StreamingState{IsStreaming: true, StreamingContent: "x"})
	s.SetResults(epoch, "m1", []models.VisualizationResult{{SQL: "SELECT 1"}})

	next := s.Select("p1", "c2")
	if next == epoch {
		t.Fatal("Select() did not change the epoch")
	}
	if len(s.Messages()) != 0 || len(s.AllResults()) != 0 || s.Streaming().IsStreaming {
		t.Error("Select() did not clear turn state")
	}
	if sel := s.Selection(); sel.ProjectID != "p1" || sel.ConversationID != "c2" {
		t.Errorf("Selection() = %+v", sel)
	}
}

func TestSession_StaleWritesDropped(t *testing.T) {
	s := NewSession()
	old := s.Select("p1", "")
	s.Select("p2", "")

	if s.IsCurrent(old) {
		t.Error("IsCurrent(old) = true")
	}
	if s.AdoptConversation(old, "c1") {
		t.Error("AdoptConversation() accepted stale epoch")
	}
	if s.AppendMessage(old, models.Message{ID: "m"}) {
		t.Error("AppendMessage() accepted stale epoch")
	}
	if s.SetMessages(old, []models.Message{{ID: "m"}}) {
		t.Error("SetMessages() accepted stale epoch")
	}
	if s.SetStreaming(old, models.StreamingState{IsStreaming: true}) {
		t.Error("SetStreaming() accepted stale epoch")
	}
	if s.SetResults(old, "m", nil) {
		t.Error("SetResults() accepted stale epoch")
	}
	if len(s.Messages()) != 0 || s.Selection().ConversationID != "" {
		t.Error("stale writes leaked into the session")
	}
}

func TestSession_AdoptConversation(t *testing.T) {
	s := NewSession()
	epoch := s.Select("p1", "")
	if !s.AdoptConversation(epoch, "c9") {
		t.Fatal("AdoptConversation() rejected current epoch")
	}
	sel := s.Selection()
	if sel.ConversationID != "c9" || sel.Epoch != epoch {
		t.Errorf("Selection() = %+v", sel)
	}
}

func TestSession_CopiesAreIsolated(t *testing.T) {
	s := NewSession()
	epoch := s.Select("p", "c")
	s.SetResults(epoch, "m", []models.VisualizationResult{{SQL: "a"}})

	got := s.Results("m")
	got[0].SQL = "mutated"
	if s.Results("m")[0].SQL != "a" {
		t.Error("Results() exposed internal slice")
	}

	all := s.AllResults()
	all["m"][0].SQL = "mutated"
	if s.Results("m")[0].SQL != "a" {
		t.Error("AllResults() exposed internal slice")
	}
}
