//go:build !nogpu

package gpu

import (
	_ "embed"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/gogpu/naga"
)

// tiledConvShaderSource is the WGSL template of the tiled convolution.
//
//go:embed shaders/tiled_conv.wgsl
var tiledConvShaderSource string

// spirvMagic is the first word of every SPIR-V module.
const spirvMagic = 0x07230203

// shaderSpec identifies one specialisation of the convolution shader.
// Workgroup size and workgroup memory size must be compile-time constants
// in WGSL, so every (tile, halo) combination compiles its own module.
type shaderSpec struct {
	tileH, tileW, halo int
}

func (s shaderSpec) scratchH() int { return s.tileH + 2*s.halo }
func (s shaderSpec) scratchW() int { return s.tileW + 2*s.halo }

// scratchBytes returns the workgroup memory the specialisation declares.
func (s shaderSpec) scratchBytes() int {
	return s.scratchH() * s.scratchW() * 16
}

func (s shaderSpec) String() string {
	return fmt.Sprintf("tile=%dx%d halo=%d", s.tileH, s.tileW, s.halo)
}

// specialize substitutes the template placeholders.
func specialize(s shaderSpec) string {
	itoa := strconv.Itoa
	r := strings.NewReplacer(
		"{{TILE_H}}", itoa(s.tileH),
		"{{TILE_W}}", itoa(s.tileW),
		"{{HALO}}", itoa(s.halo),
		"{{SCRATCH_H}}", itoa(s.scratchH()),
		"{{SCRATCH_W}}", itoa(s.scratchW()),
		"{{SCRATCH_CELLS}}", itoa(s.scratchH()*s.scratchW()),
	)
	return r.Replace(tiledConvShaderSource)
}

// compileSPIRV compiles WGSL to SPIR-V words with naga.
func compileSPIRV(wgsl string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(wgsl)
	if err != nil {
		return nil, fmt.Errorf("compile shader: %w", err)
	}
	if len(spirvBytes) < 4 || len(spirvBytes)%4 != 0 {
		return nil, fmt.Errorf("compile shader: invalid SPIR-V length %d", len(spirvBytes))
	}

	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(spirvBytes[i*4:])
	}
	if words[0] != spirvMagic {
		return nil, fmt.Errorf("compile shader: bad SPIR-V magic %#x", words[0])
	}
	return words, nil
}
