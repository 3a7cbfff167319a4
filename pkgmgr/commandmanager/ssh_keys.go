package commandmanager

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
)

type SSHKeyManager interface {
	ReadPrivateKeys(keyPassphrase string) ([]ssh.Signer, error)
}

// AgentSSHKeyManager reads signers from the agent behind SSH_AUTH_SOCK.
type AgentSSHKeyManager struct{}

// FileSSHKeyManager reads ~/.ssh/id_* private keys, decrypting them with the
// given passphrase when one is set.
type FileSSHKeyManager struct {
	Dir string // defaults to $HOME/.ssh
}

func (km AgentSSHKeyManager) ReadPrivateKeys(_ string) ([]ssh.Signer, error) {
	socket := os.Getenv("SSH_AUTH_SOCK")
	if socket == "" {
		return nil, errors.New("SSH_AUTH_SOCK not set")
	}

	conn, err := net.Dial("unix", socket)
	if err != nil {
		return nil, fmt.Errorf("could not connect to SSH agent: %w", err)
	}
	defer conn.Close()

	signers, err := agent.NewClient(conn).Signers()
	if err != nil {
		return nil, fmt.Errorf("could not get signers from SSH agent: %w", err)
	}
	if len(signers) == 0 {
		return nil, errors.New("no keys found in SSH agent")
	}

	return signers, nil
}

func (km FileSSHKeyManager) ReadPrivateKeys(keyPassphrase string) ([]ssh.Signer, error) {
	dir := km.Dir
	if dir == "" {
		dir = filepath.Join(os.Getenv("HOME"), ".ssh")
	}

	files, err := filepath.Glob(filepath.Join(dir, "id_*"))
	if err != nil {
		return nil, err
	}

	var signers []ssh.Signer
	for _, file := range files {
		if strings.HasSuffix(file, ".pub") {
			continue
		}

		keyBytes, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}

		var signer ssh.Signer
		if keyPassphrase != "" {
			signer, err = ssh.ParsePrivateKeyWithPassphrase(keyBytes, []byte(keyPassphrase))
		} else {
			signer, err = ssh.ParsePrivateKey(keyBytes)
		}
		if err != nil {
			// Wrong passphrase or unsupported format, try the next key.
			continue
		}

		signers = append(signers, signer)
	}

	if len(signers) == 0 {
		return nil, fmt.Errorf("no usable SSH keys found in %s", dir)
	}

	return signers, nil
}
