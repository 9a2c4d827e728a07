package handlers

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func multipartBody(t *testing.T, field, fileName string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile(field, fileName)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return &body, writer.FormDataContentType()
}

func TestFormFile(t *testing.T) {
	app := fiber.New(fiber.Config{BodyLimit: 20 << 20})
	app.Post("/upload", func(c *fiber.Ctx) error {
		fileName, data, ferr := formFile(c)
		if ferr != nil {
			return c.Status(ferr.Code).JSON(fiber.Map{"error": ferr.Message})
		}
		return c.JSON(fiber.Map{"file_name": fileName, "size": len(data)})
	})

	t.Run("returns the uploaded file name and bytes", func(t *testing.T) {
		body, contentType := multipartBody(t, "file", "boleta.jpg", []byte("fake-image-bytes"))
		req := httptest.NewRequest("POST", "/upload", body)
		req.Header.Set("Content-Type", contentType)

		resp, err := app.Test(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		payload, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Contains(t, string(payload), `"file_name":"boleta.jpg"`)
		assert.Contains(t, string(payload), `"size":16`)
	})

	t.Run("missing file field is a 400", func(t *testing.T) {
		body, contentType := multipartBody(t, "attachment", "boleta.jpg", []byte("x"))
		req := httptest.NewRequest("POST", "/upload", body)
		req.Header.Set("Content-Type", contentType)

		resp, err := app.Test(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})
}
