/*
Copyright (c) 2025 Mike Lane

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/

package webhook

import (
	"crypto/hmac"
	"crypto/sha1" //nolint:gosec
	"encoding/hex"
	"testing"
)

func TestValidateSignature(t *testing.T) {
	payload := []byte(`{"action":"opened","number":123}`)
	// echo -n '{"action":"opened","number":123}' | openssl dgst -sha256 -hmac 'test-secret'
	valid := "sha256=2c4854fbccd6d98cff684aedfef5f0edee3d89d30c1bae27c7e111bc1e82c282"
	mac := hmac.New(sha1.New, []byte("test-secret"))
	mac.Write(payload)
	legacy := "sha1=" + hex.EncodeToString(mac.Sum(nil))

	tests := []struct {
		name      string
		signature string
		secret    string
		want      bool
	}{
		{name: "valid signature", signature: valid, secret: "test-secret", want: true},
		{name: "wrong digest", signature: "sha256=" + "00000000000000000000000000000000" + "00000000000000000000000000000000", secret: "test-secret"},
		{name: "wrong secret", signature: valid, secret: "other-secret"},
		{name: "missing signature", signature: "", secret: "test-secret"},
		{name: "valid sha1 signature is refused", signature: legacy, secret: "test-secret"},
		{name: "not hex", signature: "sha256=zz", secret: "test-secret"},
		{name: "empty secret", signature: valid, secret: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateSignature(payload, tt.signature, tt.secret); got != tt.want {
				t.Errorf("ValidateSignature() = %v, want %v", got, tt.want)
			}
		})
	}
}
