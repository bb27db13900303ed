package shared

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"runtime"

	"github.com/adrg/xdg"
	"github.com/spf13/afero"

	"github.com/tractionhq/traction/shared/keyring"
)

// APITokenKey is the keyring entry holding the serve API bearer token.
const APITokenKey = "api-token"

const appDirName = "traction"

type UserInfo interface {
	UserID() (string, error)
	HomeDir() (string, error)
	TractionConfigDir() (string, error)
	TractionDataDir() (string, error)
	TractionLogDir() (string, error)
	TractionRuntimeDir() (string, error)
	Cwd() (string, error)
	IsRoot() (bool, error)
}

// DefaultUserInfo resolves per-user paths from the XDG base directories,
// creating them on first use.
type DefaultUserInfo struct {
	fs *afero.Afero
}

var _ UserInfo = (*DefaultUserInfo)(nil)

func NewDefaultUserInfo(fs *afero.Afero) *DefaultUserInfo {
	return &DefaultUserInfo{fs: fs}
}

func (u *DefaultUserInfo) UserID() (string, error) {
	current, err := user.Current()
	if err != nil {
		return "", err
	}
	return current.Uid, nil
}

func (u *DefaultUserInfo) HomeDir() (string, error) {
	return os.UserHomeDir()
}

func (u *DefaultUserInfo) TractionConfigDir() (string, error) {
	return u.ensureDir(filepath.Join(xdg.ConfigHome, appDirName), "config")
}

func (u *DefaultUserInfo) TractionDataDir() (string, error) {
	return u.ensureDir(filepath.Join(xdg.DataHome, appDirName), "data")
}

// TractionLogDir follows platform convention: ~/Library/Logs on macOS,
// XDG state elsewhere.
func (u *DefaultUserInfo) TractionLogDir() (string, error) {
	if runtime.GOOS == "darwin" {
		home, err := u.HomeDir()
		if err != nil {
			return "", err
		}
		return u.ensureDir(filepath.Join(home, "Library", "Logs", appDirName), "log")
	}
	return u.ensureDir(filepath.Join(xdg.StateHome, appDirName), "log")
}

// TractionRuntimeDir holds the daemon socket. macOS has no XDG runtime
// dir, /tmp stands in.
func (u *DefaultUserInfo) TractionRuntimeDir() (string, error) {
	if runtime.GOOS == "darwin" {
		return u.ensureDir(filepath.Join("/tmp", appDirName), "runtime")
	}
	return u.ensureDir(filepath.Join(xdg.RuntimeDir, appDirName), "runtime")
}

func (u *DefaultUserInfo) ensureDir(dir, kind string) (string, error) {
	if err := u.fs.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create %s directory: %w", kind, err)
	}
	return dir, nil
}

func (u *DefaultUserInfo) Cwd() (string, error) {
	return os.Getwd()
}

func (u *DefaultUserInfo) IsRoot() (bool, error) {
	userID, err := u.UserID()
	if err != nil {
		return false, err
	}
	return userID == "0", nil
}

// TokenManager stores API tokens in the OS keyring.
type TokenManager struct {
	secrets keyring.Provider
}

func NewTokenManager() *TokenManager {
	return &TokenManager{secrets: keyring.NewKeyringProvider()}
}

func NewTokenManagerWithKeyring(secrets keyring.Provider) *TokenManager {
	return &TokenManager{secrets: secrets}
}

func (m *TokenManager) StoreToken(key string, token string) error {
	return m.secrets.Set(key, token)
}

func (m *TokenManager) RetrieveToken(key string) (string, error) {
	return m.secrets.Get(key)
}

func (m *TokenManager) DeleteToken(key string) error {
	return m.secrets.Delete(key)
}
