package storage

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/h2non/filetype"
)

// PublicPrefix - URL, под которым раздаётся каталог хранилища.
const PublicPrefix = "/media/"

const sniffLen = 512

var (
	ErrEmptyFile      = errors.New("el archivo no puede estar vacío")
	ErrNotAnImage     = errors.New("solo se permiten imágenes JPEG, PNG, WEBP o GIF")
	ErrFileTooLarge   = errors.New("el archivo supera el tamaño máximo")
	allowedImageTypes = map[string]bool{
		"image/jpeg": true,
		"image/png":  true,
		"image/webp": true,
		"image/gif":  true,
	}
)

// PhotoStorage отвечает за файловое хранилище фото профилей.
type PhotoStorage struct {
	rootPath       string
	maxUploadBytes int64
}

// NewPhotoStorage создаёт файловое хранилище.
func NewPhotoStorage(rootPath string, maxUploadMB int64) (*PhotoStorage, error) {
	if err := os.MkdirAll(rootPath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: не удалось создать каталог %s: %w", rootPath, err)
	}

	return &PhotoStorage{
		rootPath:       rootPath,
		maxUploadBytes: maxUploadMB * 1024 * 1024,
	}, nil
}

// Root возвращает каталог хранилища.
func (s *PhotoStorage) Root() string {
	return s.rootPath
}

// Save определяет тип файла по сигнатуре, сохраняет изображение и возвращает публичный URL.
// Расширение берётся из реального типа, а не из имени файла клиента.
func (s *PhotoStorage) Save(ctx context.Context, userID uuid.UUID, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	br := bufio.NewReaderSize(r, sniffLen)
	head, err := br.Peek(sniffLen)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return "", fmt.Errorf("storage: не удалось прочитать файл: %w", err)
	}
	if len(head) == 0 {
		return "", ErrEmptyFile
	}

	kind, err := filetype.Match(head)
	if err != nil || kind == filetype.Unknown || !allowedImageTypes[kind.MIME.Value] {
		return "", ErrNotAnImage
	}

	userDir := filepath.Join(s.rootPath, userID.String())
	if err := os.MkdirAll(userDir, 0o755); err != nil {
		return "", fmt.Errorf("storage: не удалось создать каталог пользователя: %w", err)
	}

	fileName := fmt.Sprintf("%d.%s", time.Now().UnixNano(), kind.Extension)
	targetPath := filepath.Join(userDir, fileName)
	tempPath := targetPath + ".tmp"

	f, err := os.Create(tempPath)
	if err != nil {
		return "", fmt.Errorf("storage: не удалось создать файл: %w", err)
	}
	defer f.Close()

	limited := io.LimitedReader{R: br, N: s.maxUploadBytes + 1}
	written, err := io.Copy(f, &limited)
	if err != nil {
		_ = os.Remove(tempPath)
		return "", fmt.Errorf("storage: ошибка записи файла: %w", err)
	}
	if written > s.maxUploadBytes {
		_ = os.Remove(tempPath)
		return "", ErrFileTooLarge
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(tempPath)
		return "", fmt.Errorf("storage: ошибка закрытия файла: %w", err)
	}
	if err := os.Rename(tempPath, targetPath); err != nil {
		return "", fmt.Errorf("storage: не удалось переименовать файл: %w", err)
	}

	return PublicPrefix + path.Join(userID.String(), fileName), nil
}

// Delete удаляет ранее сохранённое фото по его публичному URL.
// Внешние URL и пустые значения игнорируются.
func (s *PhotoStorage) Delete(ctx context.Context, publicURL string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !strings.HasPrefix(publicURL, PublicPrefix) {
		return nil
	}

	relative := filepath.FromSlash(strings.TrimPrefix(publicURL, PublicPrefix))
	target := filepath.Join(s.rootPath, filepath.Clean(string(filepath.Separator)+relative))
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage: не удалось удалить файл: %w", err)
	}
	return nil
}
