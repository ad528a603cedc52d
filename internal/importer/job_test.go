package importer

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/courier/internal/domain"
	"github.com/ignite/courier/internal/storage"
)

// memStore implements ClaimStore in memory.
type memStore struct {
	lists       []*domain.List
	subscribers map[string]*domain.Subscriber // listID|email
	checkpoints int
	finished    *domain.Import
	finalStatus domain.ImportStatus
	totalSet    int
}

func newMemStore() *memStore {
	return &memStore{subscribers: make(map[string]*domain.Subscriber)}
}

func (m *memStore) CreateList(ctx context.Context, list *domain.List) error {
	list.ID = uuid.New()
	m.lists = append(m.lists, list)
	return nil
}

func (m *memStore) ListShortcodeExists(ctx context.Context, code string) (bool, error) {
	for _, l := range m.lists {
		if l.Shortcode == code {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) CreateSubscriberIfAbsent(ctx context.Context, sub *domain.Subscriber) (bool, error) {
	key := sub.ListID.String() + "|" + sub.Email
	if _, ok := m.subscribers[key]; ok {
		return false, nil
	}
	m.subscribers[key] = sub
	return true, nil
}

func (m *memStore) SetImportTotal(ctx context.Context, importID uuid.UUID, total int) error {
	m.totalSet = total
	return nil
}

func (m *memStore) CheckpointImport(ctx context.Context, imp *domain.Import) error {
	m.checkpoints++
	return nil
}

func (m *memStore) FinishImport(ctx context.Context, imp *domain.Import, status domain.ImportStatus) error {
	m.finished = imp
	m.finalStatus = status
	return nil
}

func (m *memStore) ClaimPendingImport(ctx context.Context) (*domain.Import, error) {
	return nil, nil
}

func setupJob(t *testing.T, csvContent string) (*memStore, storage.FileStore, *domain.Import, *Job) {
	t.Helper()
	store := newMemStore()
	files, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, files.Save(context.Background(), "imports/test.csv", strings.NewReader(csvContent)))

	listID := uuid.New()
	imp := &domain.Import{
		ID:         uuid.New(),
		ListID:     &listID,
		Filename:   "test.csv",
		StoredPath: "imports/test.csv",
		Status:     domain.ImportProcessing,
	}
	return store, files, imp, NewJob(store, files, nil)
}

func TestImportDeterministicTallies(t *testing.T) {
	// One good row, one invalid address, one duplicate of the good row.
	csvContent := "email,first_name,last_name\n" +
		"good@example.com,Good,Person\n" +
		"not-an-email,Bad,Person\n" +
		"good@example.com,Again,Person\n"

	store, files, imp, job := setupJob(t, csvContent)
	require.NoError(t, job.Run(context.Background(), imp))

	assert.Equal(t, 3, imp.TotalRows)
	assert.Equal(t, 3, imp.ProcessedRows)
	assert.Equal(t, 1, imp.SuccessfulRows)
	assert.Equal(t, 2, imp.FailedRows)
	assert.Equal(t, domain.ImportCompleted, store.finalStatus)
	require.Len(t, imp.Errors, 2)
	assert.Equal(t, 2, imp.Errors[0].Row)
	assert.Equal(t, "Invalid email address", imp.Errors[0].Message)
	assert.Equal(t, 3, imp.Errors[1].Row)
	assert.Equal(t, "Duplicate email", imp.Errors[1].Message)

	// First write wins: the surviving row keeps the first name.
	key := imp.ListID.String() + "|good@example.com"
	require.Contains(t, store.subscribers, key)
	assert.Equal(t, "Good", store.subscribers[key].FirstName)

	// The file is gone after a terminal outcome.
	exists, err := files.Exists(context.Background(), "imports/test.csv")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestImportStripsBOMAndHeaderAliases(t *testing.T) {
	csvContent := "\uFEFFE-Mail,FirstName,Surname\n" +
		"bom@example.com,Bom,Proof\n"

	store, _, imp, job := setupJob(t, csvContent)
	require.NoError(t, job.Run(context.Background(), imp))

	assert.Equal(t, 1, imp.SuccessfulRows)
	key := imp.ListID.String() + "|bom@example.com"
	require.Contains(t, store.subscribers, key)
	assert.Equal(t, "Bom", store.subscribers[key].FirstName)
	assert.Equal(t, "Proof", store.subscribers[key].LastName)
}

func TestImportColumnCountMismatch(t *testing.T) {
	csvContent := "email,first_name\n" +
		"a@example.com,A\n" +
		"b@example.com,B,EXTRA,COLUMNS\n" +
		"c@example.com,C\n"

	_, _, imp, job := setupJob(t, csvContent)
	require.NoError(t, job.Run(context.Background(), imp))

	assert.Equal(t, 3, imp.TotalRows)
	assert.Equal(t, 2, imp.SuccessfulRows)
	assert.Equal(t, 1, imp.FailedRows)
	require.Len(t, imp.Errors, 1)
	assert.Equal(t, 2, imp.Errors[0].Row)
	assert.Equal(t, "Column count mismatch", imp.Errors[0].Message)
}

func TestImportMissingEmailColumnIsFatal(t *testing.T) {
	csvContent := "name,city\nAlice,Lisbon\n"

	store, files, imp, job := setupJob(t, csvContent)
	err := job.Run(context.Background(), imp)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingEmailColumn)
	assert.Equal(t, domain.ImportFailed, store.finalStatus)

	// The file is deleted on the failure path too.
	exists, ferr := files.Exists(context.Background(), "imports/test.csv")
	require.NoError(t, ferr)
	assert.False(t, exists)
}

func TestImportEmptyFileIsFatal(t *testing.T) {
	store, _, imp, job := setupJob(t, "")
	err := job.Run(context.Background(), imp)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyFile)
	assert.Equal(t, domain.ImportFailed, store.finalStatus)
}

func TestImportErrorListCapped(t *testing.T) {
	var b strings.Builder
	b.WriteString("email\n")
	for i := 0; i < domain.MaxRowErrors+25; i++ {
		fmt.Fprintf(&b, "broken-row-%d\n", i)
	}

	_, _, imp, job := setupJob(t, b.String())
	require.NoError(t, job.Run(context.Background(), imp))

	assert.Equal(t, domain.MaxRowErrors+25, imp.FailedRows)
	assert.Len(t, imp.Errors, domain.MaxRowErrors)
}

func TestImportCheckpointCadence(t *testing.T) {
	var b strings.Builder
	b.WriteString("email\n")
	for i := 0; i < 250; i++ {
		fmt.Fprintf(&b, "user%d@example.com\n", i)
	}

	store, _, imp, job := setupJob(t, b.String())
	require.NoError(t, job.Run(context.Background(), imp))

	assert.Equal(t, 250, imp.SuccessfulRows)
	// 10% buckets fire more often than the row interval here: 25-row
	// boundaries plus the 100/200 row marks collapse into the bucket hits.
	assert.GreaterOrEqual(t, store.checkpoints, 10)
}

func TestImportCreatesNewList(t *testing.T) {
	csvContent := "email\nfresh@example.com\n"
	store := newMemStore()
	files, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, files.Save(context.Background(), "imports/new.csv", strings.NewReader(csvContent)))

	imp := &domain.Import{
		ID:         uuid.New(),
		NewList:    &domain.NewListSpec{Name: "Fresh", FromEmail: "hello@example.com", FromName: "Hello"},
		Filename:   "new.csv",
		StoredPath: "imports/new.csv",
		Status:     domain.ImportProcessing,
	}
	job := NewJob(store, files, nil)
	require.NoError(t, job.Run(context.Background(), imp))

	require.Len(t, store.lists, 1)
	assert.Equal(t, "Fresh", store.lists[0].Name)
	assert.Len(t, store.lists[0].Shortcode, 8)
	require.NotNil(t, imp.ListID)
	assert.Equal(t, store.lists[0].ID, *imp.ListID)
	assert.Equal(t, 1, imp.SuccessfulRows)
}
