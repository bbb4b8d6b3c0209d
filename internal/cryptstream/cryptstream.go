// Package cryptstream implements the AES-CFB encrypt/decrypt stage and
// MD5 hashing stage of spec.md §4.7 ("copy" composes reader → optional
// AES stream encryptor/decryptor → optional MD5 hasher → writer). Key
// derivation is spec.md-literal: key = SHA-256(password), IV =
// SHA-1(key)[:16]. These are the specified primitives, not a pluggable
// dependency (see DESIGN.md's stdlib-only justification), so both
// stages are built directly on stdlib crypto/*.
//
// Both stages implement internal/pipeline.State directly: they are
// pure transforms over whatever bytes arrive, never block, and need no
// background goroutine the way internal/archive.StreamStage's
// codec-library bridges do.
package cryptstream

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"hash"

	"github.com/stsaz/fcom/internal/ferr"
	"github.com/stsaz/fcom/internal/pipeline"
)

// DeriveKeyIV implements spec.md §4.7's key schedule.
func DeriveKeyIV(password string) (key [32]byte, iv [16]byte) {
	key = sha256.Sum256([]byte(password))
	h := sha1.Sum(key[:])
	copy(iv[:], h[:16])
	return key, iv
}

// stageFunc adapts a plain Open function to pipeline.Stage.
type stageFunc func(cmd any) (pipeline.State, error)

func (f stageFunc) Open(cmd any) (pipeline.State, error) { return f(cmd) }

// cryptState wraps a cipher.Stream (CFB encrypter or decrypter) as a
// pipeline stage: every byte that arrives is XORed in place and passed
// through, so it never buffers beyond the current Slice.
type cryptState struct {
	stream cipher.Stream
}

// NewEncrypt returns a stage that AES-CFB-encrypts its input stream
// under password.
func NewEncrypt(password string) pipeline.Stage {
	return stageFunc(func(cmd any) (pipeline.State, error) {
		key, iv := DeriveKeyIV(password)
		block, err := aes.NewCipher(key[:])
		if err != nil {
			return nil, ferr.New(ferr.Internal, "cryptstream.encrypt_open", err)
		}
		return &cryptState{stream: cipher.NewCFBEncrypter(block, iv[:])}, nil
	})
}

// NewDecrypt returns a stage that AES-CFB-decrypts its input stream
// under password (the inverse of NewEncrypt, same key schedule).
func NewDecrypt(password string) pipeline.Stage {
	return stageFunc(func(cmd any) (pipeline.State, error) {
		key, iv := DeriveKeyIV(password)
		block, err := aes.NewCipher(key[:])
		if err != nil {
			return nil, ferr.New(ferr.Internal, "cryptstream.decrypt_open", err)
		}
		return &cryptState{stream: cipher.NewCFBDecrypter(block, iv[:])}, nil
	})
}

func (s *cryptState) Process(in, out *pipeline.Slice, flags pipeline.Flags) pipeline.RC {
	if in.Empty() {
		if flags&pipeline.First != 0 {
			return pipeline.RCDone
		}
		return pipeline.RCMore
	}
	dst := make([]byte, len(in.Data))
	s.stream.XORKeyStream(dst, in.Data)
	in.Clear()
	out.Data = dst
	return pipeline.RCData
}

func (s *cryptState) Close() error { return nil }

// MD5Result is filled in once the owning hash stage reaches RCDone;
// callers read it after the pipeline finishes (the stage and its
// caller share this pointer, set at NewMD5 time).
type MD5Result struct {
	Sum   [16]byte
	Valid bool
}

// hashState feeds every byte that passes through into an MD5 digest
// without altering the stream, per spec.md §4.7's "optional MD5
// hasher" stage.
type hashState struct {
	hasher hash.Hash
	result *MD5Result
}

// NewMD5 returns a pass-through stage that accumulates an MD5 digest of
// everything it sees, plus the result cell it will populate.
func NewMD5() (pipeline.Stage, *MD5Result) {
	res := &MD5Result{}
	return stageFunc(func(cmd any) (pipeline.State, error) {
		return &hashState{hasher: md5.New(), result: res}, nil
	}), res
}

func (s *hashState) Process(in, out *pipeline.Slice, flags pipeline.Flags) pipeline.RC {
	if in.Empty() {
		if flags&pipeline.First != 0 {
			copy(s.result.Sum[:], s.hasher.Sum(nil))
			s.result.Valid = true
			return pipeline.RCDone
		}
		return pipeline.RCMore
	}
	s.hasher.Write(in.Data)
	out.Data = in.Data
	in.Clear()
	return pipeline.RCData
}

func (s *hashState) Close() error { return nil }
