package cfgym

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/hex"
	"fmt"
	"regexp"
)

// The anti-bot interstitial embeds a script of the form
//
//	var a = toNumbers("..."), b = toNumbers("..."), c = toNumbers("...");
//	document.cookie = "RCPC=" + toHex(slowAES.decrypt(c, 2, a, b)) + "; ...";
//
// i.e. an AES-128-CBC key, IV and ciphertext in hex. The expected RCPC
// cookie value is the hex of the decrypted block.
var ErrChallenge = fmt.Errorf("anti-bot challenge page does not match the expected cipher pattern")

var toNumbersRegex = regexp.MustCompile(`toNumbers\("([0-9a-fA-F]+)"\)`)

func isChallengePage(body []byte) bool {
	return bytes.Contains(body, []byte("toNumbers("))
}

func solveChallenge(body []byte) (string, error) {
	matches := toNumbersRegex.FindAllSubmatch(body, -1)
	if len(matches) < 3 {
		return "", ErrChallenge
	}

	key, err := hex.DecodeString(string(matches[0][1]))
	if err != nil {
		return "", ErrChallenge
	}
	iv, err := hex.DecodeString(string(matches[1][1]))
	if err != nil {
		return "", ErrChallenge
	}
	ciphertext, err := hex.DecodeString(string(matches[2][1]))
	if err != nil {
		return "", ErrChallenge
	}

	if len(iv) != aes.BlockSize || len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return "", ErrChallenge
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", ErrChallenge
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	return hex.EncodeToString(plaintext), nil
}
