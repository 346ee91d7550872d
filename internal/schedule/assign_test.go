package schedule

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"readplan/pkg/contract"
)

// 一卷三章、预算 3 天：逐日一章
func TestAssignSingleBook(t *testing.T) {
	chapters := book(1, "A", 100, 100, 100)
	groups := []contract.DayGroup{{Titles: []string{"A"}, Chapters: 3, Days: 3}}
	got, err := Assign(groups, contract.ByTitle(chapters), day(1), day(3), Options{})
	require.NoError(t, err)
	want := []contract.ScheduleEntry{entry(day(1), 1, "A"), entry(day(2), 2, "A"), entry(day(3), 3, "A")}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("指派结果不符 (-want +got):\n%s", diff)
	}
}

func TestAssignMergedSingleDay(t *testing.T) {
	corpus := contract.ByTitle(corpusOf(book(1, "B", 1, 1), book(2, "C", 3)))
	groups := []contract.DayGroup{{Titles: []string{"B", "C"}, Chapters: 3, Days: 1}}
	got, err := Assign(groups, corpus, day(5), day(9), Options{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"B", "C"}, got[0].Titles)
	assert.Equal(t, 3, got[0].Chapters)
	assert.Equal(t, day(5), got[0].Date)
}

func TestAssignDateOverflow(t *testing.T) {
	corpus := contract.ByTitle(corpusOf(book(1, "A", 1, 1, 1), book(2, "B", 1)))
	groups := []contract.DayGroup{
		{Titles: []string{"A"}, Chapters: 3, Days: 3},
		{Titles: []string{"B"}, Chapters: 1, Days: 1},
	}
	_, err := Assign(groups, corpus, day(1), day(3), Options{})
	if !errors.Is(err, contract.ErrDateOverflow) {
		t.Fatalf("期望 ErrDateOverflow, 实得 %v", err)
	}
}

func TestAssignInvariants(t *testing.T) {
	corpus := contract.ByTitle(corpusOf(book(1, "A", 1, 1), book(2, "B", 1, 1)))
	_, err := Assign([]contract.DayGroup{{Titles: []string{"A", "B"}, Chapters: 4, Days: 2}}, corpus, day(1), day(9), Options{})
	assert.ErrorIs(t, err, contract.ErrInvariantViolation)

	_, err = Assign([]contract.DayGroup{{Titles: []string{"Z"}, Chapters: 4, Days: 2}}, corpus, day(1), day(9), Options{})
	assert.ErrorIs(t, err, contract.ErrInvariantViolation)

	_, err = Assign([]contract.DayGroup{{Titles: []string{"A"}, Chapters: 2, Days: 3}}, corpus, day(1), day(9), Options{})
	assert.ErrorIs(t, err, contract.ErrInsufficientChapters)
}
