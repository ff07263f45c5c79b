package noteservice

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/snapnotes/internal/ai"
	"github.com/starford/snapnotes/internal/apperr"
	"github.com/starford/snapnotes/internal/notes"
	"github.com/starford/snapnotes/internal/testutil"
)

func TestSaveExport(t *testing.T) {
	ctx := context.Background()
	db := testutil.TestHistory(t, 10)
	dir, exports := testutil.TestExports(t)
	svc := NewService(&fakeGenerator{}, ai.NewPrompts(ai.DefaultPromptSet()), db, &fakeExtractor{}, WithExports(exports))

	entry, err := db.Append(ctx, "Q: One\nA: Two\nQ: Three\nA: Four", notes.FormatQA)
	require.NoError(t, err)

	saved, err := svc.SaveExport(ctx, entry.ID, ExportText, "")
	require.NoError(t, err)
	assert.Equal(t, entry.ID, saved.EntryID)
	assert.Equal(t, dir, filepath.Dir(saved.Path))
	assert.Regexp(t, `^snapnotes-\d+\.txt$`, filepath.Base(saved.Path))

	body, err := os.ReadFile(saved.Path)
	require.NoError(t, err)
	assert.Equal(t, "Q: One\nA: Two\n\nQ: Three\nA: Four", string(body))
	assert.Equal(t, len(body), saved.Bytes)

	named, err := svc.SaveExport(ctx, entry.ID, ExportText, "biology.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "biology.txt"), named.Path)

	raw, err := svc.SaveNotes(ctx, "• loose bullet", notes.FormatBullet, ExportText, "raw.txt")
	require.NoError(t, err)
	assert.Zero(t, raw.EntryID)
	body, err = os.ReadFile(raw.Path)
	require.NoError(t, err)
	assert.Equal(t, "- loose bullet", string(body))

	bare, err := svc.SaveExport(ctx, entry.ID, ExportText, "chemistry")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "chemistry.txt"), bare.Path)

	files, err := svc.Exports()
	require.NoError(t, err)
	require.Len(t, files, 4)
	var listed []string
	for _, f := range files {
		listed = append(listed, f.Path)
	}
	assert.Contains(t, listed, "chemistry.txt")
}

func TestReadAndDeleteExport(t *testing.T) {
	ctx := context.Background()
	db := testutil.TestHistory(t, 10)
	_, exports := testutil.TestExports(t)
	svc := NewService(&fakeGenerator{}, ai.NewPrompts(ai.DefaultPromptSet()), db, &fakeExtractor{}, WithExports(exports))

	_, err := svc.SaveNotes(ctx, "Q: One\nA: Two", notes.FormatQA, ExportText, "physics.txt")
	require.NoError(t, err)

	res, err := svc.ReadExport("physics.txt")
	require.NoError(t, err)
	assert.Equal(t, "Q: One\nA: Two", res.Body)
	assert.Equal(t, "physics.txt", res.Filename)

	res, err = svc.ReadExport("physics")
	require.NoError(t, err)
	assert.Equal(t, "physics.txt", res.Filename)

	require.NoError(t, svc.DeleteExport(ctx, "physics"))
	files, err := svc.Exports()
	require.NoError(t, err)
	assert.Empty(t, files)

	_, err = svc.ReadExport("physics.txt")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.ErrorIs(t, svc.DeleteExport(ctx, "physics.txt"), apperr.ErrNotFound)

	var ve *apperr.ValidationError
	_, err = svc.ReadExport("../outside.txt")
	require.True(t, errors.As(err, &ve))
	require.True(t, errors.As(svc.DeleteExport(ctx, ""), &ve))
	assert.Equal(t, "name", ve.Field)

	noDir := NewService(&fakeGenerator{}, ai.NewPrompts(ai.DefaultPromptSet()), db, &fakeExtractor{})
	_, err = noDir.ReadExport("physics.txt")
	assert.ErrorIs(t, err, apperr.ErrNotImplemented)
	assert.ErrorIs(t, noDir.DeleteExport(ctx, "physics.txt"), apperr.ErrNotImplemented)
}

func TestSaveExport_Errors(t *testing.T) {
	ctx := context.Background()
	db := testutil.TestHistory(t, 10)
	_, exports := testutil.TestExports(t)

	noDir := NewService(&fakeGenerator{}, ai.NewPrompts(ai.DefaultPromptSet()), db, &fakeExtractor{})
	_, err := noDir.SaveNotes(ctx, "- a", notes.FormatBullet, ExportText, "")
	assert.ErrorIs(t, err, apperr.ErrNotImplemented)
	files, err := noDir.Exports()
	require.NoError(t, err)
	assert.Empty(t, files)

	svc := NewService(&fakeGenerator{}, ai.NewPrompts(ai.DefaultPromptSet()), db, &fakeExtractor{}, WithExports(exports))
	_, err = svc.SaveExport(ctx, 99, ExportText, "")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	entry, err := db.Append(ctx, "- a", notes.FormatBullet)
	require.NoError(t, err)

	_, err = svc.SaveExport(ctx, entry.ID, ExportPDF, "")
	assert.ErrorIs(t, err, apperr.ErrNotImplemented)

	var ve *apperr.ValidationError
	_, err = svc.SaveExport(ctx, entry.ID, ExportText, "../escape.txt")
	require.True(t, errors.As(err, &ve))

	_, err = svc.SaveExport(ctx, entry.ID, ExportText, "notes.md")
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "name", ve.Field)

	files, err = svc.Exports()
	require.NoError(t, err)
	assert.Empty(t, files)
}
