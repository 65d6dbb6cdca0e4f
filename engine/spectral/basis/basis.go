package basis

import (
	"fmt"
	"sync"

	"github.com/spectramesh/spectra-go/common"
	"github.com/spectramesh/spectra-go/engine/resource"
)

// Layout names the memory order of the eigenvector matrix.
type Layout string

const (
	// LayoutModeMajor stores psi as K contiguous rows of nV values, so one
	// mode's projection reads a contiguous run. This is the GPU-resident
	// layout.
	LayoutModeMajor Layout = "mode-major"
	// LayoutVertexMajor stores psi as nV contiguous rows of K values, the
	// order eigensolvers typically emit. Transposed on upload.
	LayoutVertexMajor Layout = "vertex-major"
)

// MassEpsilon is the floor applied to lumped mass entries. Degenerate
// meshes can produce zero or negative vertex areas; clamping keeps
// mass-weighted projections finite.
const MassEpsilon float32 = 1e-8

// EigenpairData is the raw decoded form of a precomputed spectral basis,
// before validation and upload.
type EigenpairData struct {
	// Lambda holds K eigenvalues, expected ascending.
	Lambda []float32
	// Psi holds the K*NV eigenvector matrix in the order named by Layout.
	Psi []float32
	// Mass holds NV lumped mass entries.
	Mass []float32
	// NV is the vertex count of the underlying mesh.
	NV int
	// Layout names the order of Psi.
	Layout Layout
}

// basis is the implementation of the Basis interface.
type basis struct {
	mu        *sync.Mutex
	resources resource.Manager
	datasetID string

	nv int
	k  int

	lambda []float32
	psi    []float32
	mass   []float32

	lambdaHandle resource.Handle
	psiHandle    resource.Handle
	massHandle   resource.Handle

	disposed bool
}

// Basis is a GPU-resident spectral basis: eigenvalues, a mode-major
// eigenvector matrix, and a lumped mass vector, all owned by the resource
// manager under deterministic keys. Eigenvalues are always retained
// CPU-side; eigenvectors and mass keep CPU copies for headless execution
// and the point-source fast path.
type Basis interface {
	// DatasetID returns the identifier the basis was registered under.
	//
	// Returns:
	//   - string: the dataset ID
	DatasetID() string

	// NV returns the vertex count.
	//
	// Returns:
	//   - int: the vertex count
	NV() int

	// K returns the mode count.
	//
	// Returns:
	//   - int: the mode count
	K() int

	// Lambda returns the eigenvalues, ascending. The slice is shared; do
	// not mutate it.
	//
	// Returns:
	//   - []float32: the K eigenvalues
	Lambda() []float32

	// Psi returns the mode-major eigenvector matrix. The slice is shared;
	// do not mutate it.
	//
	// Returns:
	//   - []float32: the K*NV eigenvector entries
	Psi() []float32

	// Mass returns the clamped lumped mass vector. The slice is shared; do
	// not mutate it.
	//
	// Returns:
	//   - []float32: the NV mass entries
	Mass() []float32

	// LambdaHandle returns the resource handle of the eigenvalue buffer.
	//
	// Returns:
	//   - resource.Handle: the eigenvalue buffer handle
	LambdaHandle() resource.Handle

	// PsiHandle returns the resource handle of the eigenvector buffer.
	//
	// Returns:
	//   - resource.Handle: the eigenvector buffer handle
	PsiHandle() resource.Handle

	// MassHandle returns the resource handle of the mass buffer.
	//
	// Returns:
	//   - resource.Handle: the mass buffer handle
	MassHandle() resource.Handle

	// BufferKeys returns the resource keys of the three basis buffers,
	// for registration as geometry dependents.
	//
	// Returns:
	//   - []string: the eigenvalue, eigenvector, and mass buffer keys
	BufferKeys() []string

	// Dispose releases the basis's references on its three buffers.
	// Safe to call more than once.
	Dispose()
}

var _ Basis = &basis{}

// NewBasis validates eigenpair data, normalizes it to the mode-major
// layout, clamps degenerate mass entries, and uploads the three buffers
// through the resource manager. Two bases built from the same dataset ID
// and mode count share buffers.
//
// Parameters:
//   - resources: the resource manager owning the buffers
//   - datasetID: identifier of the dataset the eigenpairs belong to
//   - data: the decoded eigenpair data
//
// Returns:
//   - Basis: the uploaded basis
//   - error: an error if dimensions are inconsistent or upload fails
func NewBasis(resources resource.Manager, datasetID string, data EigenpairData) (Basis, error) {
	if resources == nil {
		return nil, fmt.Errorf("basis: resource manager is nil")
	}
	k := len(data.Lambda)
	if k == 0 {
		return nil, fmt.Errorf("basis: %s has no eigenvalues", datasetID)
	}
	if data.NV <= 0 {
		return nil, fmt.Errorf("basis: %s has invalid vertex count %d", datasetID, data.NV)
	}
	if len(data.Psi) != k*data.NV {
		return nil, fmt.Errorf("basis: %s eigenvector matrix has %d entries, want K*nV = %d*%d = %d",
			datasetID, len(data.Psi), k, data.NV, k*data.NV)
	}
	if len(data.Mass) != data.NV {
		return nil, fmt.Errorf("basis: %s mass vector has %d entries, want nV = %d",
			datasetID, len(data.Mass), data.NV)
	}

	lambda := make([]float32, k)
	copy(lambda, data.Lambda)
	for i := 1; i < k; i++ {
		if lambda[i] < lambda[i-1] {
			common.Logger().Warn("basis: eigenvalues not ascending",
				"dataset", datasetID, "mode", i, "value", lambda[i], "previous", lambda[i-1])
			break
		}
	}

	psi := make([]float32, len(data.Psi))
	switch data.Layout {
	case LayoutModeMajor, "":
		copy(psi, data.Psi)
	case LayoutVertexMajor:
		for v := 0; v < data.NV; v++ {
			for m := 0; m < k; m++ {
				psi[m*data.NV+v] = data.Psi[v*k+m]
			}
		}
	default:
		return nil, fmt.Errorf("basis: %s has unknown layout %q", datasetID, data.Layout)
	}

	mass := make([]float32, data.NV)
	clamped := 0
	for v, m := range data.Mass {
		if m < MassEpsilon {
			mass[v] = MassEpsilon
			clamped++
		} else {
			mass[v] = m
		}
	}
	if clamped > 0 {
		common.Logger().Warn("basis: clamped degenerate mass entries",
			"dataset", datasetID, "count", clamped, "epsilon", MassEpsilon)
	}

	b := &basis{
		mu:        &sync.Mutex{},
		resources: resources,
		datasetID: datasetID,
		nv:        data.NV,
		k:         k,
		lambda:    lambda,
		psi:       psi,
		mass:      mass,
	}

	scalarLayout := resource.BufferLayout{DType: resource.DTypeFloat32, ItemSize: 1}
	var err error
	b.lambdaHandle, err = resources.GetOrCreate(
		b.lambdaKey(), common.SliceToBytes(lambda), scalarLayout, resource.UsageStorage)
	if err != nil {
		return nil, err
	}
	b.psiHandle, err = resources.GetOrCreate(
		b.psiKey(), common.SliceToBytes(psi), scalarLayout, resource.UsageStorage)
	if err != nil {
		resources.Release(b.lambdaKey())
		return nil, err
	}
	b.massHandle, err = resources.GetOrCreate(
		b.massKey(), common.SliceToBytes(mass), scalarLayout, resource.UsageStorage)
	if err != nil {
		resources.Release(b.lambdaKey())
		resources.Release(b.psiKey())
		return nil, err
	}
	return b, nil
}

func (b *basis) DatasetID() string {
	return b.datasetID
}

func (b *basis) NV() int {
	return b.nv
}

func (b *basis) K() int {
	return b.k
}

func (b *basis) Lambda() []float32 {
	return b.lambda
}

func (b *basis) Psi() []float32 {
	return b.psi
}

func (b *basis) Mass() []float32 {
	return b.mass
}

func (b *basis) LambdaHandle() resource.Handle {
	return b.lambdaHandle
}

func (b *basis) PsiHandle() resource.Handle {
	return b.psiHandle
}

func (b *basis) MassHandle() resource.Handle {
	return b.massHandle
}

func (b *basis) BufferKeys() []string {
	return []string{b.lambdaKey(), b.psiKey(), b.massKey()}
}

func (b *basis) Dispose() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.disposed {
		return
	}
	b.disposed = true
	b.resources.Release(b.lambdaKey())
	b.resources.Release(b.psiKey())
	b.resources.Release(b.massKey())
}

func (b *basis) lambdaKey() string {
	return fmt.Sprintf("%s:eigenvalues:%d", b.datasetID, b.k)
}

func (b *basis) psiKey() string {
	return fmt.Sprintf("%s:eigenvectors:%d:%s", b.datasetID, b.k, LayoutModeMajor)
}

func (b *basis) massKey() string {
	return fmt.Sprintf("%s:mass:%d", b.datasetID, b.nv)
}
