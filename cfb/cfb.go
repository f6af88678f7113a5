// Package cfb reads Compound File Binary (OLE2) containers from memory.
//
// A compound file is a miniature filesystem: fixed-size sectors threaded
// into chains by a file allocation table (FAT), a directory of named
// storages and streams arranged as a red-black tree, and a mini-stream
// holding the contents of small streams addressed through a second
// allocation table (MiniFAT). This reader materializes that structure from
// an untrusted byte buffer without writing anything and without native
// library dependencies.
//
// Parsing is strict by default. Lenient mode additionally recovers files
// whose trailing FAT sectors were cut off by the producing client: the
// missing table entries are padded with end-of-chain markers so the intact
// part of the file remains readable. Lenient mode is opt-in because the
// padding can fabricate structure for genuinely corrupt files.
package cfb

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"
	"unicode/utf16"
)

// Mode selects how forgiving parsing is about structural damage.
type Mode int

const (
	// Strict rejects any structural inconsistency.
	Strict Mode = iota
	// Lenient pads a truncated FAT sector table with end-of-chain markers
	// and accepts partial trailing sectors.
	Lenient
)

// Parse errors. All structural failures wrap one of these sentinels.
var (
	ErrInvalidSignature      = fmt.Errorf("cfb: invalid signature")
	ErrCorruptChain          = fmt.Errorf("cfb: corrupt sector chain")
	ErrTruncated             = fmt.Errorf("cfb: truncated data")
	ErrUnsupportedSectorSize = fmt.Errorf("cfb: unsupported sector size")
)

var signature = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

const (
	headerSize   = 512
	dirEntrySize = 128

	headerDIFATSlots = 109

	freeSect   = 0xFFFFFFFF
	endOfChain = 0xFFFFFFFE
	fatSect    = 0xFFFFFFFD
	difSect    = 0xFFFFFFFC
	maxRegSect = 0xFFFFFFFA

	nilIndex = 0xFFFFFFFF
)

// EntryType classifies a directory entry.
type EntryType byte

const (
	TypeUnknown EntryType = 0
	TypeStorage EntryType = 1
	TypeStream  EntryType = 2
	TypeRoot    EntryType = 5
)

// DirEntry is one 128-byte directory record. Tree relationships are arena
// indices into Container.entries, matching the on-disk representation.
type DirEntry struct {
	Name        string
	Type        EntryType
	Color       byte
	Left        uint32
	Right       uint32
	Child       uint32
	StartSector uint32
	Size        uint64
}

// Container is a parsed compound file. It holds a read-only view of the
// input buffer; streams are materialized on demand.
type Container struct {
	data []byte
	mode Mode

	sectorSize  int
	sectorCount int
	miniCutoff  uint32

	fat        []uint32
	miniFAT    []uint32
	entries    []DirEntry
	miniStream []byte
}

// Parse reads a compound file from data. The returned container keeps a
// reference to data; callers must not mutate it while the container is in
// use.
func Parse(data []byte, mode Mode) (*Container, error) {
	if len(data) < len(signature) || !bytes.Equal(data[:len(signature)], signature) {
		return nil, fmt.Errorf("%w: first %d bytes do not match the compound file magic", ErrInvalidSignature, len(signature))
	}
	if len(data) < headerSize {
		return nil, fmt.Errorf("%w: %d bytes is smaller than the %d-byte header", ErrTruncated, len(data), headerSize)
	}

	r := NewReader(data)
	if err := r.Seek(30); err != nil {
		return nil, err
	}
	sectorShift, _ := r.U16()
	miniShift, _ := r.U16()
	if sectorShift < 9 || sectorShift > 12 {
		return nil, fmt.Errorf("%w: sector shift %d (want 9..12)", ErrUnsupportedSectorSize, sectorShift)
	}
	if miniShift != 6 {
		return nil, fmt.Errorf("%w: mini sector shift %d (want 6)", ErrUnsupportedSectorSize, miniShift)
	}

	r.Seek(44)
	numFAT, _ := r.U32()
	firstDir, _ := r.U32()
	r.Skip(4) // transaction signature
	miniCutoff, _ := r.U32()
	firstMiniFAT, _ := r.U32()
	numMiniFAT, _ := r.U32()
	firstDIFAT, _ := r.U32()
	numDIFAT, _ := r.U32()

	c := &Container{
		data:       data,
		mode:       mode,
		sectorSize: 1 << sectorShift,
		miniCutoff: miniCutoff,
	}
	// Partial trailing sectors count: lenient mode can still use their bytes.
	c.sectorCount = (len(data) - headerSize + c.sectorSize - 1) / c.sectorSize

	// Reject absurd FAT sector counts before allocating anything for them.
	if int64(numFAT) > int64(c.sectorCount)+1 {
		if mode == Strict {
			return nil, fmt.Errorf("%w: header declares %d FAT sectors but the file holds %d sectors", ErrTruncated, numFAT, c.sectorCount)
		}
		numFAT = uint32(c.sectorCount)
	}

	difat, err := c.readDIFAT(firstDIFAT, numDIFAT)
	if err != nil {
		return nil, err
	}
	if err := c.buildFAT(difat, numFAT); err != nil {
		return nil, err
	}
	if err := c.readDirectory(firstDir); err != nil {
		return nil, err
	}
	if err := c.readMiniFAT(firstMiniFAT, numMiniFAT); err != nil {
		return nil, err
	}
	return c, nil
}

// Root returns the root storage entry.
func (c *Container) Root() *DirEntry {
	return &c.entries[0]
}

// Children returns the direct children of a storage entry in on-disk
// traversal order (in-order walk of the sibling tree). Duplicate names are
// preserved; disambiguation is the caller's concern. Revisited indices are
// skipped so a corrupted tree cannot loop.
func (c *Container) Children(e *DirEntry) []*DirEntry {
	var out []*DirEntry
	seen := make(map[uint32]bool)
	var walk func(idx uint32)
	walk = func(idx uint32) {
		if idx == nilIndex || int(idx) >= len(c.entries) || seen[idx] {
			return
		}
		seen[idx] = true
		ent := &c.entries[idx]
		walk(ent.Left)
		out = append(out, ent)
		walk(ent.Right)
	}
	walk(e.Child)
	return out
}

// Stream materializes the content of a stream entry. Exactly Size bytes are
// returned; a chain that cannot supply them fails with ErrTruncated.
func (c *Container) Stream(e *DirEntry) ([]byte, error) {
	if e.Size == 0 {
		return nil, nil
	}
	if e.Type != TypeRoot && uint64(e.Size) < uint64(c.miniCutoff) {
		return c.readMiniChain(e.StartSector, e.Size)
	}
	return c.readChain(e.StartSector, e.Size)
}

// sector returns the bytes of sector s. The second result reports whether
// the sector is fully present in the buffer; a partial tail is returned
// as-is so lenient mode can salvage it.
func (c *Container) sector(s uint32) ([]byte, bool, error) {
	if s > maxRegSect || int(s) >= c.sectorCount {
		return nil, false, fmt.Errorf("%w: sector index %d out of range [0, %d)", ErrCorruptChain, s, c.sectorCount)
	}
	off := headerSize + int(s)*c.sectorSize
	end := off + c.sectorSize
	if end <= len(c.data) {
		return c.data[off:end], true, nil
	}
	if off >= len(c.data) {
		return nil, false, fmt.Errorf("%w: sector %d starts past end of buffer", ErrTruncated, s)
	}
	return c.data[off:], false, nil
}

// readDIFAT collects FAT sector locations: 109 header slots plus the
// double-indirect sector chain for larger files.
func (c *Container) readDIFAT(firstDIFAT, numDIFAT uint32) ([]uint32, error) {
	difat := make([]uint32, 0, headerDIFATSlots)
	for i := 0; i < headerDIFATSlots; i++ {
		difat = append(difat, binary.LittleEndian.Uint32(c.data[76+i*4:80+i*4]))
	}

	entriesPerSector := c.sectorSize / 4
	next := firstDIFAT
	for steps := 0; next != endOfChain && next != freeSect; steps++ {
		if steps > int(numDIFAT) || steps > c.sectorCount+1 {
			return nil, fmt.Errorf("%w: DIFAT chain does not terminate", ErrCorruptChain)
		}
		sec, full, err := c.sector(next)
		if err != nil || !full {
			if c.mode == Lenient {
				break
			}
			if err == nil {
				err = fmt.Errorf("%w: DIFAT sector %d is partial", ErrTruncated, next)
			}
			return nil, err
		}
		for i := 0; i < entriesPerSector-1; i++ {
			difat = append(difat, binary.LittleEndian.Uint32(sec[i*4:i*4+4]))
		}
		next = binary.LittleEndian.Uint32(sec[(entriesPerSector-1)*4:])
	}
	return difat, nil
}

// buildFAT reads every declared FAT sector into one flat table. In Lenient
// mode missing or partial trailing sectors are padded with end-of-chain
// markers, which recovers files whose sector table was truncated by the
// producing client.
func (c *Container) buildFAT(difat []uint32, numFAT uint32) error {
	entriesPerSector := c.sectorSize / 4
	c.fat = make([]uint32, 0, int(numFAT)*entriesPerSector)

	used := uint32(0)
	for _, s := range difat {
		if used == numFAT {
			break
		}
		if s > maxRegSect {
			continue
		}
		used++
		sec, full, err := c.sector(s)
		if err != nil || !full {
			if c.mode == Strict {
				if err == nil {
					err = fmt.Errorf("%w: FAT sector %d is partial", ErrTruncated, s)
				}
				return err
			}
			// Salvage whole entries from a partial sector, pad the rest.
			for len(sec) >= 4 {
				c.fat = append(c.fat, binary.LittleEndian.Uint32(sec[:4]))
				sec = sec[4:]
			}
			for len(c.fat)%entriesPerSector != 0 {
				c.fat = append(c.fat, endOfChain)
			}
			continue
		}
		for i := 0; i < entriesPerSector; i++ {
			c.fat = append(c.fat, binary.LittleEndian.Uint32(sec[i*4:i*4+4]))
		}
	}

	if used < numFAT {
		if c.mode == Strict {
			return fmt.Errorf("%w: header declares %d FAT sectors, DIFAT lists %d", ErrTruncated, numFAT, used)
		}
	}
	if c.mode == Lenient {
		for len(c.fat) < c.sectorCount {
			c.fat = append(c.fat, endOfChain)
		}
	}
	return nil
}

// walkFAT returns the sector chain starting at start. The chain must
// terminate within sectorCount+1 steps; anything else is a cycle or an
// index outside the file and fails with ErrCorruptChain.
func (c *Container) walkFAT(start uint32) ([]uint32, error) {
	var out []uint32
	cur := start
	for steps := 0; cur != endOfChain; steps++ {
		if steps > c.sectorCount+1 {
			return nil, fmt.Errorf("%w: chain from sector %d does not terminate (cycle?)", ErrCorruptChain, start)
		}
		if cur > maxRegSect || int(cur) >= c.sectorCount {
			return nil, fmt.Errorf("%w: chain index %d out of range [0, %d)", ErrCorruptChain, cur, c.sectorCount)
		}
		out = append(out, cur)
		if int(cur) >= len(c.fat) {
			if c.mode == Lenient {
				break
			}
			return nil, fmt.Errorf("%w: FAT has no entry for sector %d", ErrCorruptChain, cur)
		}
		cur = c.fat[cur]
	}
	return out, nil
}

// readChain materializes size bytes by walking the main FAT chain.
func (c *Container) readChain(start uint32, size uint64) ([]byte, error) {
	chain, err := c.walkFAT(start)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, size)
	for _, s := range chain {
		if uint64(len(out)) >= size {
			break
		}
		sec, full, err := c.sector(s)
		if err != nil {
			return nil, err
		}
		if !full && c.mode == Strict {
			return nil, fmt.Errorf("%w: sector %d is partial", ErrTruncated, s)
		}
		out = append(out, sec...)
	}
	if uint64(len(out)) < size {
		return nil, fmt.Errorf("%w: stream declares %d bytes, chain supplies %d", ErrTruncated, size, len(out))
	}
	return out[:size], nil
}

// readMiniChain materializes size bytes by walking the MiniFAT chain over
// the root entry's mini-stream.
func (c *Container) readMiniChain(start uint32, size uint64) ([]byte, error) {
	const miniSectorSize = 64
	miniCount := len(c.miniStream) / miniSectorSize
	if rem := len(c.miniStream) % miniSectorSize; rem != 0 {
		miniCount++ // partial tail, usable in lenient mode
	}

	out := make([]byte, 0, size)
	cur := start
	for steps := 0; cur != endOfChain; steps++ {
		if steps > len(c.miniFAT)+1 {
			return nil, fmt.Errorf("%w: mini chain from sector %d does not terminate (cycle?)", ErrCorruptChain, start)
		}
		if cur > maxRegSect || int(cur) >= miniCount {
			return nil, fmt.Errorf("%w: mini sector index %d out of range [0, %d)", ErrCorruptChain, cur, miniCount)
		}
		off := int(cur) * miniSectorSize
		end := off + miniSectorSize
		if end > len(c.miniStream) {
			if c.mode == Strict {
				return nil, fmt.Errorf("%w: mini sector %d is partial", ErrTruncated, cur)
			}
			end = len(c.miniStream)
		}
		out = append(out, c.miniStream[off:end]...)
		if uint64(len(out)) >= size {
			break
		}
		if int(cur) >= len(c.miniFAT) {
			if c.mode == Lenient {
				break
			}
			return nil, fmt.Errorf("%w: MiniFAT has no entry for mini sector %d", ErrCorruptChain, cur)
		}
		cur = c.miniFAT[cur]
	}
	if uint64(len(out)) < size {
		return nil, fmt.Errorf("%w: mini stream declares %d bytes, chain supplies %d", ErrTruncated, size, len(out))
	}
	return out[:size], nil
}

// readDirectory walks the directory sector chain and decodes the 128-byte
// entries, then materializes the root's mini-stream for small-stream reads.
func (c *Container) readDirectory(firstDir uint32) error {
	chain, err := c.walkFAT(firstDir)
	if err != nil {
		return fmt.Errorf("directory: %w", err)
	}
	var raw []byte
	for _, s := range chain {
		sec, full, err := c.sector(s)
		if err != nil {
			return fmt.Errorf("directory: %w", err)
		}
		if !full && c.mode == Strict {
			return fmt.Errorf("directory: %w: sector %d is partial", ErrTruncated, s)
		}
		raw = append(raw, sec...)
	}

	n := len(raw) / dirEntrySize
	if n == 0 {
		return fmt.Errorf("%w: empty directory", ErrTruncated)
	}
	c.entries = make([]DirEntry, 0, n)
	for i := 0; i < n; i++ {
		e := decodeDirEntry(raw[i*dirEntrySize : (i+1)*dirEntrySize])
		if c.sectorSize == 512 {
			// Version 3 files only define the low 32 bits of the size.
			e.Size &= 0xFFFFFFFF
		}
		c.entries = append(c.entries, e)
	}
	if c.entries[0].Type != TypeRoot {
		return fmt.Errorf("%w: first directory entry is not the root storage", ErrCorruptChain)
	}

	root := &c.entries[0]
	if root.Size > 0 {
		ms, err := c.readChain(root.StartSector, root.Size)
		if err != nil {
			if c.mode == Strict {
				return fmt.Errorf("mini stream: %w", err)
			}
			// Lenient: keep whatever prefix of the mini stream was readable.
			ms, _ = c.readChainPrefix(root.StartSector)
		}
		c.miniStream = ms
	}
	return nil
}

// readChainPrefix collects as many bytes as the chain can supply without
// failing on shortfall. Lenient-mode helper.
func (c *Container) readChainPrefix(start uint32) ([]byte, error) {
	chain, err := c.walkFAT(start)
	if err != nil {
		return nil, err
	}
	var out []byte
	for _, s := range chain {
		sec, _, err := c.sector(s)
		if err != nil {
			break
		}
		out = append(out, sec...)
	}
	return out, nil
}

func (c *Container) readMiniFAT(firstMiniFAT, numMiniFAT uint32) error {
	if numMiniFAT == 0 || firstMiniFAT > maxRegSect {
		return nil
	}
	chain, err := c.walkFAT(firstMiniFAT)
	if err != nil {
		return fmt.Errorf("minifat: %w", err)
	}
	c.miniFAT = make([]uint32, 0, len(chain)*(c.sectorSize/4))
	for _, s := range chain {
		sec, full, err := c.sector(s)
		if err != nil {
			return fmt.Errorf("minifat: %w", err)
		}
		if !full && c.mode == Strict {
			return fmt.Errorf("minifat: %w: sector %d is partial", ErrTruncated, s)
		}
		for len(sec) >= 4 {
			c.miniFAT = append(c.miniFAT, binary.LittleEndian.Uint32(sec[:4]))
			sec = sec[4:]
		}
	}
	return nil
}

func decodeDirEntry(b []byte) DirEntry {
	nameLen := int(binary.LittleEndian.Uint16(b[64:66]))
	if nameLen > 64 {
		nameLen = 64
	}
	name := ""
	if nameLen >= 2 {
		u16s := make([]uint16, 0, nameLen/2)
		for i := 0; i+1 < nameLen; i += 2 {
			u16s = append(u16s, binary.LittleEndian.Uint16(b[i:i+2]))
		}
		name = strings.TrimRight(string(utf16.Decode(u16s)), "\x00")
	}
	return DirEntry{
		Name:        name,
		Type:        EntryType(b[66]),
		Color:       b[67],
		Left:        binary.LittleEndian.Uint32(b[68:72]),
		Right:       binary.LittleEndian.Uint32(b[72:76]),
		Child:       binary.LittleEndian.Uint32(b[76:80]),
		StartSector: binary.LittleEndian.Uint32(b[116:120]),
		Size:        binary.LittleEndian.Uint64(b[120:128]),
	}
}
