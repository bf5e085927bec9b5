package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/DavideCamp/match-cv/internal/models"
	"github.com/DavideCamp/match-cv/internal/repositories"
)

type fakeBatchRepo struct {
	mu      sync.Mutex
	batches map[uuid.UUID]*models.UploadBatch
	items   map[uuid.UUID]*models.UploadItem
}

func newFakeBatchRepo() *fakeBatchRepo {
	return &fakeBatchRepo{
		batches: make(map[uuid.UUID]*models.UploadBatch),
		items:   make(map[uuid.UUID]*models.UploadItem),
	}
}

func (f *fakeBatchRepo) CreateWithItems(batch *models.UploadBatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	stored := *batch
	f.batches[batch.ID] = &stored
	for i := range batch.Items {
		item := batch.Items[i]
		f.items[item.ID] = &item
	}
	return nil
}

func (f *fakeBatchRepo) FindByID(id uuid.UUID) (*models.UploadBatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	batch, ok := f.batches[id]
	if !ok {
		return nil, fmt.Errorf("batch %s: %w", id, repositories.ErrNotFound)
	}

	snapshot := *batch
	snapshot.Items = f.batchItemsLocked(id)
	return &snapshot, nil
}

func (f *fakeBatchRepo) FindItemByID(itemID uuid.UUID) (*models.UploadItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	item, ok := f.items[itemID]
	if !ok {
		return nil, fmt.Errorf("upload item %s: %w", itemID, repositories.ErrNotFound)
	}
	snapshot := *item
	return &snapshot, nil
}

func (f *fakeBatchRepo) MarkItemRunning(itemID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	item, ok := f.items[itemID]
	if !ok {
		return repositories.ErrNotFound
	}
	now := time.Now()
	item.Status = models.StatusRunning
	item.StartedAt = &now
	return nil
}

func (f *fakeBatchRepo) MarkItemTerminal(itemID uuid.UUID, status models.UploadStatus, errorMessage string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	item, ok := f.items[itemID]
	if !ok {
		return repositories.ErrNotFound
	}
	now := time.Now()
	item.Status = status
	item.ErrorMessage = errorMessage
	item.CompletedAt = &now
	return nil
}

func (f *fakeBatchRepo) RecomputeBatchStatus(batchID uuid.UUID) (*models.UploadBatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	batch, ok := f.batches[batchID]
	if !ok {
		return nil, repositories.ErrNotFound
	}

	progress := models.DeriveBatchProgress(f.batchItemsLocked(batchID))
	batch.Status = progress.Status
	batch.ProcessedFiles = progress.ProcessedFiles
	batch.FailedFiles = progress.FailedFiles

	snapshot := *batch
	return &snapshot, nil
}

func (f *fakeBatchRepo) batchItemsLocked(batchID uuid.UUID) []models.UploadItem {
	var items []models.UploadItem
	for _, item := range f.items {
		if item.BatchID == batchID {
			items = append(items, *item)
		}
	}
	return items
}

type fakeDocRepo struct {
	mu   sync.Mutex
	docs map[uuid.UUID]*models.Document
}

func (f *fakeDocRepo) Create(document *models.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := *document
	f.docs[document.ID] = &stored
	return nil
}

func (f *fakeDocRepo) FindByID(id uuid.UUID) (*models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", id, repositories.ErrNotFound)
	}
	snapshot := *doc
	return &snapshot, nil
}

func (f *fakeDocRepo) FindByIDs(ids []uuid.UUID) ([]models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Document
	for _, id := range ids {
		if doc, ok := f.docs[id]; ok {
			out = append(out, *doc)
		}
	}
	return out, nil
}

func (f *fakeDocRepo) UpdateIngestion(id uuid.UUID, rawText, metadata, candidateName, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return repositories.ErrNotFound
	}
	now := time.Now()
	doc.RawText = rawText
	doc.Metadata = metadata
	doc.CandidateName = candidateName
	doc.Email = email
	doc.IngestedAt = &now
	return nil
}

func (f *fakeDocRepo) Delete(id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.docs[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(f.docs, id)
	return nil
}

func (f *fakeDocRepo) SearchFulltext(ctx context.Context, category models.Category, query string, topN int) ([]models.CandidateMatch, error) {
	return nil, nil
}

type fakePDFParser struct {
	texts map[string]string
}

func (f *fakePDFParser) ExtractText(filePath string) (string, error) {
	text, ok := f.texts[filePath]
	if !ok {
		return "", fmt.Errorf("file does not exist: %s", filePath)
	}
	if text == "" {
		return "", ErrNoText
	}
	return text, nil
}

// ingestGemini fails metadata extraction for any prompt containing failOn.
type ingestGemini struct {
	failOn string
}

func (g *ingestGemini) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	return []float32{0.1, 0.2, 0.3}, nil
}

func (g *ingestGemini) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	if g.failOn != "" && strings.Contains(prompt, g.failOn) {
		return "", errors.New("model refused the document")
	}
	return `{"candidate_name": "Mario Rossi", "email": "mario@example.com"}`, nil
}

type fakeVectorStore struct {
	mu      sync.Mutex
	upserts map[uuid.UUID]int
	failAll bool
}

func (f *fakeVectorStore) InitCollection() error { return nil }

func (f *fakeVectorStore) UpsertChunk(ctx context.Context, documentID uuid.UUID, chunkIndex int, text string, embedding []float32) error {
	if f.failAll {
		return errors.New("vector store unavailable")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upserts == nil {
		f.upserts = make(map[uuid.UUID]int)
	}
	f.upserts[documentID]++
	return nil
}

func (f *fakeVectorStore) SearchSimilar(ctx context.Context, queryEmbedding []float32, limit int) ([]SemanticHit, error) {
	return nil, nil
}

func (f *fakeVectorStore) DeleteDocument(ctx context.Context, documentID uuid.UUID) error {
	return nil
}

type ingestFixture struct {
	batchRepo *fakeBatchRepo
	docRepo   *fakeDocRepo
	vectors   *fakeVectorStore
	batch     *models.UploadBatch
	ingestor  Ingestor
}

// newIngestFixture builds a batch of n documents whose PDF text is
// "cv text <n>", backed entirely by in-memory fakes.
func newIngestFixture(t *testing.T, n int, gemini GeminiService, vectors *fakeVectorStore) *ingestFixture {
	t.Helper()

	batchRepo := newFakeBatchRepo()
	docRepo := &fakeDocRepo{docs: make(map[uuid.UUID]*models.Document)}
	parser := &fakePDFParser{texts: make(map[string]string)}

	batch := &models.UploadBatch{
		ID:         uuid.New(),
		Status:     models.StatusPending,
		TotalFiles: n,
	}

	for i := 1; i <= n; i++ {
		path := fmt.Sprintf("/uploads/cv_%d.pdf", i)
		parser.texts[path] = fmt.Sprintf("cv text %d", i)

		doc := &models.Document{
			ID:       uuid.New(),
			Filename: fmt.Sprintf("cv_%d.pdf", i),
			FilePath: path,
		}
		require.NoError(t, docRepo.Create(doc))

		docID := doc.ID
		batch.Items = append(batch.Items, models.UploadItem{
			ID:         uuid.New(),
			BatchID:    batch.ID,
			DocumentID: &docID,
			Filename:   doc.Filename,
			Status:     models.StatusPending,
		})
	}

	require.NoError(t, batchRepo.CreateWithItems(batch))

	return &ingestFixture{
		batchRepo: batchRepo,
		docRepo:   docRepo,
		vectors:   vectors,
		batch:     batch,
		ingestor:  NewIngestor(batchRepo, docRepo, parser, gemini, vectors, zap.NewNop()),
	}
}

func TestIngestorSuccessPath(t *testing.T) {
	vectors := &fakeVectorStore{}
	fx := newIngestFixture(t, 1, &ingestGemini{}, vectors)
	item := fx.batch.Items[0]

	require.NoError(t, fx.ingestor.ProcessItem(context.Background(), item.ID))

	stored, err := fx.batchRepo.FindItemByID(item.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSuccess, stored.Status)
	assert.Empty(t, stored.ErrorMessage)
	assert.NotNil(t, stored.CompletedAt)

	doc, err := fx.docRepo.FindByID(*item.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, "Mario Rossi", doc.CandidateName)
	assert.Equal(t, "mario@example.com", doc.Email)
	assert.Equal(t, "cv text 1", doc.RawText)
	assert.NotNil(t, doc.IngestedAt)
	assert.Positive(t, vectors.upserts[doc.ID])

	batch, err := fx.batchRepo.FindByID(fx.batch.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSuccess, batch.Status)
	assert.Equal(t, 1, batch.ProcessedFiles)
	assert.Zero(t, batch.FailedFiles)
}

func TestIngestorPartialBatch(t *testing.T) {
	// Item 2 fails metadata extraction; its siblings are unaffected.
	gemini := &ingestGemini{failOn: "cv text 2"}
	fx := newIngestFixture(t, 3, gemini, &fakeVectorStore{})

	ctx := context.Background()
	var wg sync.WaitGroup
	for _, item := range fx.batch.Items {
		wg.Add(1)
		go func(itemID uuid.UUID) {
			defer wg.Done()
			_ = fx.ingestor.ProcessItem(ctx, itemID)
		}(item.ID)
	}
	wg.Wait()

	batch, err := fx.batchRepo.FindByID(fx.batch.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPartial, batch.Status)
	assert.Equal(t, 3, batch.ProcessedFiles)
	assert.Equal(t, 1, batch.FailedFiles)

	failed, err := fx.batchRepo.FindItemByID(fx.batch.Items[1].ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, failed.Status)
	assert.NotEmpty(t, failed.ErrorMessage)

	for _, i := range []int{0, 2} {
		sibling, err := fx.batchRepo.FindItemByID(fx.batch.Items[i].ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusSuccess, sibling.Status)
	}
}

func TestIngestorAllItemsFailing(t *testing.T) {
	fx := newIngestFixture(t, 2, &ingestGemini{}, &fakeVectorStore{failAll: true})

	ctx := context.Background()
	for _, item := range fx.batch.Items {
		assert.Error(t, fx.ingestor.ProcessItem(ctx, item.ID))
	}

	batch, err := fx.batchRepo.FindByID(fx.batch.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, batch.Status)
	assert.Equal(t, 2, batch.ProcessedFiles)
	assert.Equal(t, 2, batch.FailedFiles)
}

func TestIngestorRecordsParserFailure(t *testing.T) {
	fx := newIngestFixture(t, 1, &ingestGemini{}, &fakeVectorStore{})
	item := fx.batch.Items[0]

	// Swap in a document pointing at a file the parser cannot read.
	doc, err := fx.docRepo.FindByID(*item.DocumentID)
	require.NoError(t, err)
	doc.FilePath = "/uploads/missing.pdf"
	require.NoError(t, fx.docRepo.Create(doc))

	err = fx.ingestor.ProcessItem(context.Background(), item.ID)
	require.Error(t, err)

	stored, err := fx.batchRepo.FindItemByID(item.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, stored.Status)
	assert.Contains(t, stored.ErrorMessage, "text extraction failed")
}
