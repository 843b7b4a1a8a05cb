package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

// 读取文件内容辅助函数
func readAll(t *testing.T, r io.ReadCloser) string {
	t.Helper()
	defer r.Close()
	b, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}
	return string(b)
}

// TestLocalStorage 测试本地存储实现
func TestLocalStorage(t *testing.T) {
	ctx := context.Background()
	tempDir := t.TempDir()

	localStorage, err := NewLocalStorage(LocalConfig{Path: tempDir})
	if err != nil {
		t.Fatalf("Failed to create local storage instance: %v", err)
	}

	content := `{"title": "Attention Is All You Need"}`
	info, err := localStorage.Save(ctx, bytes.NewBufferString(content), "paper-1.json")
	if err != nil {
		t.Fatalf("Failed to save file: %v", err)
	}

	t.Run("Save", func(t *testing.T) {
		if info.ID == "" {
			t.Error("Returned file ID should not be empty")
		}
		if info.Name != "paper-1.json" {
			t.Errorf("File name should be paper-1.json, got %s", info.Name)
		}
		if info.Size != int64(len(content)) {
			t.Errorf("File size should be %d, got %d", len(content), info.Size)
		}
		if info.MimeType != "application/json" {
			t.Errorf("Mime type should be application/json, got %s", info.MimeType)
		}
		if _, err := os.Stat(filepath.Join(tempDir, info.Path)); err != nil {
			t.Errorf("Saved file should exist: %v", err)
		}
	})

	t.Run("Get", func(t *testing.T) {
		reader, err := localStorage.Get(ctx, info.ID)
		if err != nil {
			t.Fatalf("Failed to get file: %v", err)
		}
		if got := readAll(t, reader); got != content {
			t.Errorf("File content mismatch, expected %q, got %q", content, got)
		}
	})

	t.Run("Exists", func(t *testing.T) {
		exists, err := localStorage.Exists(ctx, info.ID)
		if err != nil || !exists {
			t.Errorf("File should exist, got exists=%v err=%v", exists, err)
		}
		exists, err = localStorage.Exists(ctx, "non-existent-id")
		if err != nil || exists {
			t.Errorf("File should not exist, got exists=%v err=%v", exists, err)
		}
	})

	t.Run("List", func(t *testing.T) {
		if _, err := localStorage.Save(ctx, bytes.NewBufferString("title: x\n"), "paper-2.yaml"); err != nil {
			t.Fatalf("Failed to save second file: %v", err)
		}
		files, err := localStorage.List(ctx)
		if err != nil {
			t.Fatalf("Failed to list files: %v", err)
		}
		if len(files) != 2 {
			t.Errorf("Expected 2 files, got %d", len(files))
		}
		found := false
		for _, f := range files {
			if f.ID == info.ID {
				found = true
			}
		}
		if !found {
			t.Error("Saved file not found in list")
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := localStorage.Delete(ctx, info.ID); err != nil {
			t.Fatalf("Failed to delete file: %v", err)
		}
		exists, _ := localStorage.Exists(ctx, info.ID)
		if exists {
			t.Error("File should not exist after deletion")
		}
		if err := localStorage.Delete(ctx, info.ID); !errors.Is(err, ErrFileNotFound) {
			t.Errorf("Deleting missing file should return ErrFileNotFound, got %v", err)
		}
		if _, err := localStorage.Get(ctx, info.ID); !errors.Is(err, ErrFileNotFound) {
			t.Errorf("Getting missing file should return ErrFileNotFound, got %v", err)
		}
	})

	t.Run("Canceled", func(t *testing.T) {
		canceled, cancel := context.WithCancel(ctx)
		cancel()
		if _, err := localStorage.Save(canceled, bytes.NewBufferString("x"), "x.json"); err == nil {
			t.Error("Save should fail with canceled context")
		}
	})
}

// TestMinioStorage 测试MinIO存储实现
// 需要本地运行MinIO服务
func TestMinioStorage(t *testing.T) {
	if os.Getenv("MINIO_TEST") != "true" {
		t.Skip("MINIO_TEST environment variable not set, skipping MinIO tests")
	}

	ctx := context.Background()
	minioStorage, err := NewMinioStorage(MinioConfig{
		Endpoint:  "localhost:9000",
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
		UseSSL:    false,
		Bucket:    "scholar-test",
	})
	if err != nil {
		t.Fatalf("Failed to create MinIO storage: %v", err)
	}

	content := `{"title": "MinIO archive"}`
	info, err := minioStorage.Save(ctx, bytes.NewBufferString(content), "archive.json")
	if err != nil {
		t.Fatalf("Failed to save file to MinIO: %v", err)
	}
	defer func() {
		_ = minioStorage.Delete(ctx, info.ID)
	}()

	reader, err := minioStorage.Get(ctx, info.ID)
	if err != nil {
		t.Fatalf("Failed to get file from MinIO: %v", err)
	}
	if got := readAll(t, reader); got != content {
		t.Errorf("File content mismatch, expected %q, got %q", content, got)
	}

	exists, err := minioStorage.Exists(ctx, info.ID)
	if err != nil || !exists {
		t.Errorf("File should exist in MinIO, got exists=%v err=%v", exists, err)
	}
}

// TestStorageFactory 测试存储工厂函数
func TestStorageFactory(t *testing.T) {
	t.Run("Local", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "archives")
		storage, err := NewStorage(Config{Type: "local", Local: LocalConfig{Path: dir}})
		if err != nil {
			t.Fatalf("Failed to create local storage: %v", err)
		}
		if storage == nil {
			t.Fatal("Created storage instance should not be nil")
		}
		if _, err := os.Stat(dir); err != nil {
			t.Errorf("Storage path was not created: %s", dir)
		}
	})

	t.Run("Unsupported", func(t *testing.T) {
		if _, err := NewStorage(Config{Type: "ftp"}); err == nil {
			t.Error("Unsupported storage type should fail")
		}
	})
}

// TestMimeType 测试MIME类型判断
func TestMimeType(t *testing.T) {
	cases := map[string]string{
		"a.json": "application/json",
		"a.YAML": "application/yaml",
		"a.md":   "text/markdown",
		"a.html": "text/html",
		"a.bin":  "application/octet-stream",
	}
	for name, want := range cases {
		if got := getMimeType(name); got != want {
			t.Errorf("getMimeType(%q) = %s, want %s", name, got, want)
		}
	}
}
