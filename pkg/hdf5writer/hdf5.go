package hdf5writer

import (
	"fmt"

	"github.com/jmbenlloch/go-hdf5"
	hcaldigi "github.com/jmbenlloch/hcaldigi_go/pkg"
)

type EventDataHDF5 struct {
	evt_number int32
	n_digis    int32
}

type RunInfoHDF5 struct {
	run_number       int32
	samples_per_digi int32
	soi              int32
	process_id       [UUIDLEN]byte
}

// SampleHDF5 is one row per sample of every digi. The detector and
// electronics views of the channel are both stored so the table can be used
// without the conditions database.
type SampleHDF5 struct {
	evt_number int32
	raw_id     uint32
	section    int8
	layer      int16
	strip      int16
	end        int8
	fiber      int16
	elink      int16
	channel    int16
	index      int16
	i_sample   int16
	raw_adc    int16
	adc        int16
	tot        int16
	toa        int16
	tot_prog   int8
	tot_comp   int8
}

const UUIDLEN = 36

func convertToHdf5String(s string) [UUIDLEN]byte {
	var byteArray [UUIDLEN]byte
	copy(byteArray[:], s)
	return byteArray
}

func boolToInt8(b bool) int8 {
	if b {
		return 1
	}
	return 0
}

func openFile(fname string) (*hdf5.File, error) {
	f, err := hdf5.CreateFile(fname, hdf5.F_ACC_TRUNC)
	if err != nil {
		return nil, &hcaldigi.ErrOpenFile{Filename: fname, Err: err}
	}
	return f, nil
}

func createGroup(file *hdf5.File, groupName string) (*hdf5.Group, error) {
	g, err := file.CreateGroup(groupName)
	if err != nil {
		return nil, &ErrCreateGroup{GroupName: groupName, Err: err}
	}
	return g, nil
}

func newChunkedPropList(chunks []uint, compressionLevel int) (*hdf5.PropList, error) {
	plist, err := hdf5.NewPropList(hdf5.P_DATASET_CREATE)
	if err != nil {
		return nil, err
	}
	if err := plist.SetChunk(chunks); err != nil {
		plist.Close()
		return nil, err
	}
	if compressionLevel > 0 {
		if err := plist.SetDeflate(compressionLevel); err != nil {
			plist.Close()
			return nil, err
		}
	}
	return plist, nil
}

// create2dArray makes an extendable (rows, nColumns) int16 array.
func create2dArray(group *hdf5.Group, name string, nColumns int, compressionLevel int) (*hdf5.Dataset, error) {
	dimsArray := []uint{0, uint(nColumns)}
	unlimitedDims := -1 // H5S_UNLIMITED is -1L
	maxDimsArray := []uint{uint(unlimitedDims), uint(nColumns)}

	fileSpace, err := hdf5.CreateSimpleDataspace(dimsArray, maxDimsArray)
	if err != nil {
		return nil, &ErrCreateTable{TableName: name, Err: err}
	}
	defer fileSpace.Close()

	chunks := []uint{1024, uint(nColumns)}
	plist, err := newChunkedPropList(chunks, compressionLevel)
	if err != nil {
		return nil, &ErrCreateTable{TableName: name, Err: err}
	}
	defer plist.Close()

	dset, err := group.CreateDatasetWith(name, hdf5.T_NATIVE_INT16, fileSpace, plist)
	if err != nil {
		return nil, &ErrCreateTable{TableName: name, Err: err}
	}
	return dset, nil
}

func createTable(group *hdf5.Group, name string, datatype interface{}, compressionLevel int) (*hdf5.Dataset, error) {
	dims := []uint{0}
	unlimitedDims := -1 // H5S_UNLIMITED is -1L
	maxDims := []uint{uint(unlimitedDims)}
	fileSpace, err := hdf5.CreateSimpleDataspace(dims, maxDims)
	if err != nil {
		return nil, &ErrCreateTable{TableName: name, Err: err}
	}
	defer fileSpace.Close()

	chunks := []uint{32768}
	plist, err := newChunkedPropList(chunks, compressionLevel)
	if err != nil {
		return nil, &ErrCreateTable{TableName: name, Err: err}
	}
	defer plist.Close()

	// create the memory data type
	dtype, err := hdf5.NewDatatypeFromValue(datatype)
	if err != nil {
		return nil, &ErrCreateTable{TableName: name, Err: err}
	}

	dset, err := group.CreateDatasetWith(name, dtype, fileSpace, plist)
	if err != nil {
		return nil, &ErrCreateTable{TableName: name, Err: err}
	}
	return dset, nil
}

func writeEntryToTable[T any](dataset *hdf5.Dataset, data T, rowsInFile int) error {
	array := []T{data}
	return writeArrayToTable(dataset, &array, rowsInFile)
}

// writeArrayToTable appends data after the first rowsInFile rows.
func writeArrayToTable[T any](dataset *hdf5.Dataset, data *[]T, rowsInFile int) error {
	length := uint(len(*data))
	if length == 0 {
		return nil
	}
	dims := []uint{length}
	dataspace, err := hdf5.CreateSimpleDataspace(dims, nil)
	if err != nil {
		return fmt.Errorf("error creating memory dataspace: %w", err)
	}
	defer dataspace.Close()

	// extend
	start := uint(rowsInFile)
	newsize := []uint{start + length}
	if err := dataset.Resize(newsize); err != nil {
		return fmt.Errorf("error extending table: %w", err)
	}
	filespace := dataset.Space()
	defer filespace.Close()

	count := []uint{length}
	if err := filespace.SelectHyperslab([]uint{start}, nil, count, nil); err != nil {
		return fmt.Errorf("error selecting rows: %w", err)
	}
	return dataset.WriteSubset(data, dataspace, filespace)
}

// write2dArray appends len(data)/nColumns rows after the first rowsInFile.
func write2dArray(dataset *hdf5.Dataset, data *[]int16, rowsInFile int, nColumns int) error {
	nRows := uint(len(*data) / nColumns)
	if nRows == 0 {
		return nil
	}
	// extend
	newsize := []uint{uint(rowsInFile) + nRows, uint(nColumns)}
	if err := dataset.Resize(newsize); err != nil {
		return fmt.Errorf("error extending array: %w", err)
	}
	filespace := dataset.Space()
	defer filespace.Close()

	start := []uint{uint(rowsInFile), 0}
	count := []uint{nRows, uint(nColumns)}
	if err := filespace.SelectHyperslab(start, nil, count, nil); err != nil {
		return fmt.Errorf("error selecting rows: %w", err)
	}

	dataspace, err := hdf5.CreateSimpleDataspace(count, nil)
	if err != nil {
		return fmt.Errorf("error creating memory dataspace: %w", err)
	}
	defer dataspace.Close()

	return dataset.WriteSubset(data, dataspace, filespace)
}
