package hasher

import "github.com/cespare/xxhash/v2"

// Progress es el estado incremental de un archivo: cuántos bytes se han
// consumido, el digest de cada bloque y un digest acumulado del prefijo.
// consumed nunca retrocede.
type Progress struct {
	consumed int64
	blocks   []uint64
	rolling  *xxhash.Digest
}

func NewProgress() *Progress {
	return &Progress{rolling: xxhash.New()}
}

func (p *Progress) Consumed() int64 {
	return p.consumed
}

func (p *Progress) Blocks() int {
	return len(p.blocks)
}

// Sum64 es el digest del prefijo consumido hasta ahora.
func (p *Progress) Sum64() uint64 {
	return p.rolling.Sum64()
}

func (p *Progress) advance(sum uint64, data []byte) {
	p.blocks = append(p.blocks, sum)
	_, _ = p.rolling.Write(data)
	p.consumed += int64(len(data))
}
