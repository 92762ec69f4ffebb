package vault

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
)

// SecretPrefix marks a config value that must be read from the KV store.
const SecretPrefix = "vault:"

const serviceAccountTokenPath = "/var/run/secrets/kubernetes.io/serviceaccount/token"

// ISecretReader resolves a single secret by key.
type ISecretReader interface {
	GetKV(secretKey string) (string, error)
}

// VaultClient represents the Vault interaction client
type VaultClient struct {
	addr         string
	kvSecretPath string
	role         string
	tokenPath    string
	http         *resty.Client

	mu      sync.Mutex
	token   string
	secrets map[string]string
}

type loginResponse struct {
	Errors []string `json:"errors"`
	Auth   *struct {
		ClientToken string `json:"client_token"`
	} `json:"auth"`
}

type kvResponse struct {
	Errors []string `json:"errors"`
	Data   *struct {
		Data map[string]string `json:"data"`
	} `json:"data"`
}

// New creates a Vault client. Authentication is deferred until the first read.
func New(addr, kvSecretPath, role string) *VaultClient {
	return &VaultClient{
		addr:         strings.TrimRight(addr, "/"),
		role:         role,
		kvSecretPath: strings.Trim(kvSecretPath, "/"),
		tokenPath:    serviceAccountTokenPath,
		http:         resty.New().SetHeader("Content-Type", "application/json"),
	}
}

// WithTokenPath overrides where the Kubernetes service account token is read from.
func (vc *VaultClient) WithTokenPath(path string) *VaultClient {
	vc.tokenPath = path
	return vc
}

// GetKubernetesToken reads the Kubernetes service account token
func (vc *VaultClient) GetKubernetesToken() (string, error) {
	token, err := os.ReadFile(vc.tokenPath)
	if err != nil {
		return "", errors.Wrap(err, "failed to read token")
	}
	return strings.TrimSpace(string(token)), nil
}

func (vc *VaultClient) login() (string, error) {
	k8sToken, err := vc.GetKubernetesToken()
	if err != nil {
		return "", err
	}

	var result loginResponse
	resp, err := vc.http.R().
		SetBody(map[string]string{
			"jwt":  k8sToken,
			"role": vc.role,
		}).
		SetResult(&result).
		Post(fmt.Sprintf("%s/v1/auth/kubernetes/login", vc.addr))
	if err != nil {
		return "", err
	}
	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("vault authentication failed with status %d: %s", resp.StatusCode(), string(resp.Body()))
	}
	if len(result.Errors) > 0 {
		return "", fmt.Errorf("vault authentication error: %v", result.Errors)
	}
	if result.Auth == nil || result.Auth.ClientToken == "" {
		return "", errors.New("vault returned empty client_token")
	}

	return result.Auth.ClientToken, nil
}

// GetKV retrieves a secret from Vault's KV v2 store. The whole secret path is
// fetched once and cached for subsequent keys.
func (vc *VaultClient) GetKV(secretKey string) (string, error) {
	vc.mu.Lock()
	defer vc.mu.Unlock()

	if vc.secrets == nil {
		if err := vc.loadSecrets(); err != nil {
			return "", err
		}
	}

	secret, ok := vc.secrets[secretKey]
	if !ok {
		return "", fmt.Errorf("secret key '%s' not found", secretKey)
	}
	return secret, nil
}

func (vc *VaultClient) loadSecrets() error {
	if vc.token == "" {
		token, err := vc.login()
		if err != nil {
			return err
		}
		vc.token = token
	}

	var result kvResponse
	resp, err := vc.http.R().
		SetHeader("X-Vault-Token", vc.token).
		SetResult(&result).
		Get(fmt.Sprintf("%s/v1/%s", vc.addr, vc.kvSecretPath))
	if err != nil {
		return err
	}
	if resp.StatusCode() != 200 {
		return fmt.Errorf("vault KV get failed with status %d: %s", resp.StatusCode(), string(resp.Body()))
	}
	if len(result.Errors) > 0 {
		return fmt.Errorf("vault KV get error: %v", result.Errors)
	}
	if result.Data == nil || result.Data.Data == nil {
		return errors.New("vault response missing nested 'data' field")
	}

	vc.secrets = result.Data.Data
	return nil
}

// ResolveKeys replaces every value carrying SecretPrefix with the secret it
// names. Plain values are returned untouched. A nil reader is only an error
// when a prefixed value is present.
func ResolveKeys(reader ISecretReader, keys []string) ([]string, error) {
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		name, ok := strings.CutPrefix(key, SecretPrefix)
		if !ok {
			out = append(out, key)
			continue
		}
		if reader == nil {
			return nil, fmt.Errorf("secret %q requested but vault is not configured", name)
		}
		secret, err := reader.GetKV(name)
		if err != nil {
			return nil, errors.Wrapf(err, "resolve secret %q", name)
		}
		out = append(out, secret)
	}
	return out, nil
}
