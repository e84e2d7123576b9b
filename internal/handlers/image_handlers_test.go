package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liquidinsider/storefront-api/internal/storage"
)

func imageRouter(h *Handlers, method, path string, handler gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Handle(method, path, handler)
	return r
}

// Deleting the primary image must promote the first remaining image in
// the same transaction, so the product never lacks a primary while it
// still has images.
func TestDeletePrimaryImagePromotesNext(t *testing.T) {
	h, mock := newMockHandlers(t)
	h.Store = storage.NewLocalStorage(t.TempDir())

	mock.ExpectQuery("SELECT file_name, is_primary FROM product_images").
		WithArgs(int64(77), int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"file_name", "is_primary"}).AddRow("abc.jpg", true))
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM product_images WHERE id").
		WithArgs(int64(77)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE product_images SET is_primary = TRUE").
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	router := imageRouter(h, "DELETE", "/api/products/:id/images/:imageId", h.DeleteProductImage)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("DELETE", "/api/products/3/images/77", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

// A non-primary deletion leaves the primary flag alone.
func TestDeleteSecondaryImageSkipsPromotion(t *testing.T) {
	h, mock := newMockHandlers(t)
	h.Store = storage.NewLocalStorage(t.TempDir())

	mock.ExpectQuery("SELECT file_name, is_primary FROM product_images").
		WithArgs(int64(78), int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"file_name", "is_primary"}).AddRow("def.jpg", false))
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM product_images WHERE id").
		WithArgs(int64(78)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	router := imageRouter(h, "DELETE", "/api/products/:id/images/:imageId", h.DeleteProductImage)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("DELETE", "/api/products/3/images/78", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

// SetPrimaryImage clears every flag and sets the target inside one
// transaction; a miss on the target rolls the clear back too.
func TestSetPrimaryImageIsTransactional(t *testing.T) {
	h, mock := newMockHandlers(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE product_images SET is_primary = FALSE").
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("UPDATE product_images SET is_primary = TRUE").
		WithArgs(int64(78), int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	router := imageRouter(h, "PUT", "/api/products/:id/images/:imageId/primary", h.SetPrimaryImage)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("PUT", "/api/products/3/images/78/primary", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSetPrimaryImageUnknownImageRollsBack(t *testing.T) {
	h, mock := newMockHandlers(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE product_images SET is_primary = FALSE").
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("UPDATE product_images SET is_primary = TRUE").
		WithArgs(int64(999), int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	router := imageRouter(h, "PUT", "/api/products/:id/images/:imageId/primary", h.SetPrimaryImage)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("PUT", "/api/products/3/images/999/primary", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}
