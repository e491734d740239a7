// Package security implements the standard security handler, revisions 2
// to 6, for reading encrypted documents.
package security

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/rc4"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/binary"
	"errors"
	"fmt"
	"hash"

	"github.com/tsawler/pdfhtml/core"
	"github.com/xdg-go/stringprep"
	"golang.org/x/text/encoding/charmap"
)

// ErrPassword means neither the user nor the owner password matched.
var ErrPassword = errors.New("incorrect password")

type cipherType int

const (
	cipherRC4 cipherType = iota + 1
	cipherAES
)

// cryptFilter selects the cipher for strings or streams. A nil filter is
// the Identity filter.
type cryptFilter struct {
	cipher cipherType
}

// Handler decrypts the strings and streams of one document.
type Handler struct {
	r        int
	keyBytes int
	id       []byte
	o, u     []byte
	oe, ue   []byte
	perms    []byte
	p        uint32

	encryptMetadata bool
	strF, stmF      *cryptFilter
	key             []byte
}

// NewHandler reads an /Encrypt dictionary and authenticates password,
// first as the owner password and then as the user password. Most
// encrypted files open with the empty password. id is the first element
// of the trailer's /ID array.
func NewHandler(encrypt core.Dict, id []byte, password string) (*Handler, error) {
	if filter, _ := encrypt.GetName("Filter"); filter != "Standard" {
		return nil, fmt.Errorf("unsupported security handler /%s", filter)
	}
	v, _ := encrypt.GetInt("V")
	r, _ := encrypt.GetInt("R")
	h := &Handler{
		r:               int(r),
		id:              id,
		encryptMetadata: true,
	}
	if emd, ok := encrypt.GetBool("EncryptMetadata"); ok && v >= 4 {
		h.encryptMetadata = bool(emd)
	}
	if p, ok := encrypt.GetInt("P"); ok {
		h.p = uint32(p)
	}

	switch v {
	case 1:
		h.keyBytes = 5
		h.strF = &cryptFilter{cipher: cipherRC4}
		h.stmF = h.strF
	case 2, 3:
		h.keyBytes = 5
		if length, ok := encrypt.GetInt("Length"); ok {
			if length < 40 || length > 128 || length%8 != 0 {
				return nil, fmt.Errorf("invalid key length %d", length)
			}
			h.keyBytes = int(length) / 8
		}
		h.strF = &cryptFilter{cipher: cipherRC4}
		h.stmF = h.strF
	case 4, 5:
		h.keyBytes = 16
		if v == 5 {
			h.keyBytes = 32
		}
		cf, _ := encrypt.GetDict("CF")
		var err error
		if h.stmF, err = cryptFilterFor(encrypt.Get("StmF"), cf); err != nil {
			return nil, fmt.Errorf("StmF: %w", err)
		}
		if h.strF, err = cryptFilterFor(encrypt.Get("StrF"), cf); err != nil {
			return nil, fmt.Errorf("StrF: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported encryption version %d", v)
	}

	ouLen := 32
	if h.r >= 5 {
		ouLen = 48
	}
	var ok bool
	if h.o, ok = stringBytes(encrypt.Get("O"), ouLen); !ok {
		return nil, errors.New("invalid /O entry")
	}
	if h.u, ok = stringBytes(encrypt.Get("U"), ouLen); !ok {
		return nil, errors.New("invalid /U entry")
	}

	switch h.r {
	case 2, 3, 4:
		padded := padPassword(password)
		if h.authenticateOwner(padded) || h.authenticateUser(padded) {
			return h, nil
		}
	case 5, 6:
		if h.oe, ok = stringBytes(encrypt.Get("OE"), 32); !ok {
			return nil, errors.New("invalid /OE entry")
		}
		if h.ue, ok = stringBytes(encrypt.Get("UE"), 32); !ok {
			return nil, errors.New("invalid /UE entry")
		}
		if h.r == 6 {
			if h.perms, ok = stringBytes(encrypt.Get("Perms"), 16); !ok {
				return nil, errors.New("invalid /Perms entry")
			}
		}
		pw, err := utf8Password(password)
		if err != nil {
			return nil, err
		}
		if h.authenticateOwner6(pw) || h.authenticateUser6(pw) {
			return h, nil
		}
	default:
		return nil, fmt.Errorf("unsupported security handler revision %d", h.r)
	}
	return nil, ErrPassword
}

func cryptFilterFor(obj core.Object, cf core.Dict) (*cryptFilter, error) {
	name, _ := obj.(core.Name)
	if name == "" || name == "Identity" {
		return nil, nil
	}
	entry, ok := cf.GetDict(string(name))
	if !ok {
		return nil, fmt.Errorf("crypt filter /%s not defined", name)
	}
	switch cfm, _ := entry.GetName("CFM"); cfm {
	case "V2":
		return &cryptFilter{cipher: cipherRC4}, nil
	case "AESV2", "AESV3":
		return &cryptFilter{cipher: cipherAES}, nil
	case "None":
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported crypt filter method /%s", cfm)
	}
}

func stringBytes(obj core.Object, n int) ([]byte, bool) {
	b, ok := core.StringBytes(obj)
	if !ok || len(b) < n {
		return nil, false
	}
	return b[:n], true
}

// DecryptObject decrypts every string and stream body inside obj, which
// was read as indirect object ref. Cross-reference streams are never
// encrypted, and metadata streams only when /EncryptMetadata says so.
// Values that fail to decrypt are left as read; the first failure is
// returned.
func (h *Handler) DecryptObject(obj core.Object, ref core.IndirectRef) (core.Object, error) {
	var first error
	note := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}

	var walk func(core.Object) core.Object
	walk = func(obj core.Object) core.Object {
		switch v := obj.(type) {
		case core.String:
			out, err := h.decrypt(h.strF, ref, []byte(v))
			note(err)
			if err != nil {
				return v
			}
			return core.String(out)
		case core.HexString:
			out, err := h.decrypt(h.strF, ref, []byte(v))
			note(err)
			if err != nil {
				return v
			}
			return core.HexString(out)
		case core.Array:
			for i, item := range v {
				v[i] = walk(item)
			}
			return v
		case core.Dict:
			for k, item := range v {
				v[k] = walk(item)
			}
			return v
		case *core.Stream:
			typ, _ := v.Dict.GetName("Type")
			walk(v.Dict)
			if typ == "XRef" || (typ == "Metadata" && !h.encryptMetadata) {
				return v
			}
			out, err := h.decrypt(h.stmF, ref, v.Data)
			note(err)
			if err == nil {
				v.Data = out
			}
			return v
		}
		return obj
	}
	return walk(obj), first
}

// decrypt never modifies data, which may alias the input file.
func (h *Handler) decrypt(cf *cryptFilter, ref core.IndirectRef, data []byte) ([]byte, error) {
	if cf == nil {
		return data, nil
	}
	key := h.objectKey(cf, ref)
	switch cf.cipher {
	case cipherRC4:
		c, err := rc4.NewCipher(key)
		if err != nil {
			return nil, err
		}
		out := make([]byte, len(data))
		c.XORKeyStream(out, data)
		return out, nil
	case cipherAES:
		if len(data) == 0 {
			return data, nil
		}
		if len(data) < 32 || len(data)%aes.BlockSize != 0 {
			return nil, fmt.Errorf("object %s: AES data of %d bytes", ref, len(data))
		}
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, err
		}
		out := make([]byte, len(data)-aes.BlockSize)
		cipher.NewCBCDecrypter(block, data[:aes.BlockSize]).CryptBlocks(out, data[aes.BlockSize:])
		pad := int(out[len(out)-1])
		if pad < 1 || pad > aes.BlockSize {
			return nil, fmt.Errorf("object %s: bad AES padding", ref)
		}
		return out[:len(out)-pad], nil
	}
	return data, nil
}

// objectKey derives the key for one object. Revisions 5 and 6 use the
// file key directly.
func (h *Handler) objectKey(cf *cryptFilter, ref core.IndirectRef) []byte {
	if h.r >= 5 {
		return h.key
	}
	m := md5.New()
	m.Write(h.key)
	num, gen := ref.Number, ref.Generation
	m.Write([]byte{byte(num), byte(num >> 8), byte(num >> 16), byte(gen), byte(gen >> 8)})
	if cf.cipher == cipherAES {
		m.Write([]byte("sAlT"))
	}
	return m.Sum(nil)[:min(h.keyBytes+5, 16)]
}

var passwordPad = []byte{
	0x28, 0xBF, 0x4E, 0x5E, 0x4E, 0x75, 0x8A, 0x41,
	0x64, 0x00, 0x4E, 0x56, 0xFF, 0xFA, 0x01, 0x08,
	0x2E, 0x2E, 0x00, 0xB6, 0xD0, 0x68, 0x3E, 0x80,
	0x2F, 0x0C, 0xA9, 0xFE, 0x64, 0x53, 0x69, 0x7A,
}

// padPassword encodes a revision 2-4 password in Latin-1 and pads it to
// 32 bytes.
func padPassword(password string) []byte {
	enc, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(password))
	if err != nil {
		enc = []byte(password)
	}
	padded := make([]byte, 32)
	n := copy(padded, enc)
	copy(padded[n:], passwordPad)
	return padded
}

// utf8Password prepares a revision 5-6 password with SASLprep.
func utf8Password(password string) ([]byte, error) {
	prepped, err := stringprep.SASLprep.Prepare(password)
	if err != nil {
		return nil, fmt.Errorf("password: %w", err)
	}
	b := []byte(prepped)
	if len(b) > 127 {
		b = b[:127]
	}
	return b, nil
}

// fileKey computes the revision 2-4 file key from a padded user password.
func (h *Handler) fileKey(padded []byte) []byte {
	m := md5.New()
	m.Write(padded)
	m.Write(h.o)
	m.Write([]byte{byte(h.p), byte(h.p >> 8), byte(h.p >> 16), byte(h.p >> 24)})
	m.Write(h.id)
	if h.r >= 4 && !h.encryptMetadata {
		m.Write([]byte{0xFF, 0xFF, 0xFF, 0xFF})
	}
	key := m.Sum(nil)
	if h.r >= 3 {
		for i := 0; i < 50; i++ {
			m.Reset()
			m.Write(key[:h.keyBytes])
			key = m.Sum(key[:0])
		}
	}
	return key[:h.keyBytes]
}

// computeU returns the /U value a file key produces. For revisions 3 and
// 4 only the first 16 bytes are significant.
func (h *Handler) computeU(key []byte) []byte {
	u := make([]byte, 32)
	if h.r == 2 {
		c, _ := rc4.NewCipher(key)
		c.XORKeyStream(u, passwordPad)
		return u
	}
	m := md5.New()
	m.Write(passwordPad)
	m.Write(h.id)
	u = m.Sum(u[:0])
	xorRounds(key, u, 0, 19)
	return u
}

// xorRounds applies RC4 with key XOR i for i from first to last.
func xorRounds(key, data []byte, first, last int) {
	tmp := make([]byte, len(key))
	step := 1
	if last < first {
		step = -1
	}
	for i := first; ; i += step {
		for j := range tmp {
			tmp[j] = key[j] ^ byte(i)
		}
		c, _ := rc4.NewCipher(tmp)
		c.XORKeyStream(data, data)
		if i == last {
			return
		}
	}
}

func (h *Handler) authenticateUser(padded []byte) bool {
	key := h.fileKey(padded)
	u := h.computeU(key)
	n := 16
	if h.r == 2 {
		n = 32
	}
	if !bytes.Equal(u[:n], h.u[:n]) {
		return false
	}
	h.key = key
	return true
}

// authenticateOwner recovers the user password from /O and checks it.
func (h *Handler) authenticateOwner(padded []byte) bool {
	m := md5.New()
	m.Write(padded)
	sum := m.Sum(nil)
	if h.r >= 3 {
		for i := 0; i < 50; i++ {
			m.Reset()
			m.Write(sum[:h.keyBytes])
			sum = m.Sum(sum[:0])
		}
	}
	key := sum[:h.keyBytes]

	user := make([]byte, 32)
	copy(user, h.o)
	if h.r == 2 {
		c, _ := rc4.NewCipher(key)
		c.XORKeyStream(user, user)
	} else {
		xorRounds(key, user, 19, 0)
	}
	return h.authenticateUser(user)
}

func (h *Handler) authenticateUser6(pw []byte) bool {
	if !bytes.Equal(h.hash(pw, h.u[32:40], nil), h.u[:32]) {
		return false
	}
	return h.unwrapKey(h.hash(pw, h.u[40:48], nil), h.ue)
}

func (h *Handler) authenticateOwner6(pw []byte) bool {
	if !bytes.Equal(h.hash(pw, h.o[32:40], h.u), h.o[:32]) {
		return false
	}
	return h.unwrapKey(h.hash(pw, h.o[40:48], h.u), h.oe)
}

// unwrapKey decrypts the file key from /UE or /OE and, for revision 6,
// checks it against /Perms.
func (h *Handler) unwrapKey(intermediate, wrapped []byte) bool {
	block, err := aes.NewCipher(intermediate)
	if err != nil {
		return false
	}
	key := make([]byte, 32)
	cipher.NewCBCDecrypter(block, make([]byte, aes.BlockSize)).CryptBlocks(key, wrapped)

	if h.r == 6 {
		block, err := aes.NewCipher(key)
		if err != nil {
			return false
		}
		perms := make([]byte, 16)
		block.Decrypt(perms, h.perms)
		if !bytes.Equal(perms[9:12], []byte("adb")) || binary.LittleEndian.Uint32(perms) != h.p {
			return false
		}
	}
	h.key = key
	return true
}

// hash is the revision 6 password hash, or plain SHA-256 for revision 5.
// u is the 48-byte /U value when checking the owner password.
func (h *Handler) hash(pw, salt, u []byte) []byte {
	sum := sha256.New()
	sum.Write(pw)
	sum.Write(salt)
	sum.Write(u)
	k := sum.Sum(nil)
	if h.r == 5 {
		return k
	}

	k1 := make([]byte, 0, 64*(len(pw)+64+len(u)))
	for round := 0; ; round++ {
		k1 = k1[:0]
		for j := 0; j < 64; j++ {
			k1 = append(k1, pw...)
			k1 = append(k1, k...)
			k1 = append(k1, u...)
		}
		block, _ := aes.NewCipher(k[:16])
		cipher.NewCBCEncrypter(block, k[16:32]).CryptBlocks(k1, k1)

		// The first 16 bytes as a big-endian number, mod 3.
		rem := 0
		for _, b := range k1[:16] {
			rem += int(b)
		}
		var next hash.Hash
		switch rem % 3 {
		case 0:
			next = sha256.New()
		case 1:
			next = sha512.New384()
		default:
			next = sha512.New()
		}
		next.Write(k1)
		k = next.Sum(nil)

		// After at least 64 rounds, stop once the last byte of E is no
		// more than the number of rounds done minus 32.
		if done := round + 1; done >= 64 && int(k1[len(k1)-1]) <= done-32 {
			break
		}
	}
	return k[:32]
}
