package inbox

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/openpgp"
	"golang.org/x/crypto/openpgp/armor"
)

var ErrBadPassphrase = errors.New("batch passphrase rejected")

// Decrypt reads a symmetrically encrypted OpenPGP message, armored or binary.
// The whole plaintext is read so an integrity failure surfaces here and not mid-batch.
func Decrypt(r io.Reader, passphrase string) (io.Reader, error) {
	br := bufio.NewReader(r)
	var body io.Reader = br
	if head, _ := br.Peek(5); string(head) == "-----" {
		block, err := armor.Decode(br)
		if err != nil {
			return nil, fmt.Errorf("decode armor: %w", err)
		}
		body = block.Body
	}

	tried := false
	prompt := func(keys []openpgp.Key, symmetric bool) ([]byte, error) {
		if tried || !symmetric {
			return nil, ErrBadPassphrase
		}
		tried = true
		return []byte(passphrase), nil
	}
	md, err := openpgp.ReadMessage(body, nil, prompt, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt batch: %w", err)
	}
	plain, err := io.ReadAll(md.UnverifiedBody)
	if err != nil {
		return nil, fmt.Errorf("decrypt batch: %w", err)
	}
	return bytes.NewReader(plain), nil
}
