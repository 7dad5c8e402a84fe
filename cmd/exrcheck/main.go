// exrcheck validates OpenEXR files for correctness and spec compliance.
//
// Usage:
//
//	exrcheck [-q|--quiet] [-s|--strict] <filename> [<filename> ...]
//
// Options:
//
//	-q, --quiet   Only output errors. Exit code indicates pass/fail.
//	-s, --strict  Enforce spec recommendations and check for deprecated practices.
//	-h, --help    Show this help message.
//	--version     Show version information.
//
// Exit codes:
//
//	0: All files valid
//	1: One or more files invalid
//	2: Error (file not found, etc.)
package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/TriceHelix/openexr-go/compression"
	"github.com/TriceHelix/openexr-go/exr"
	"github.com/TriceHelix/openexr-go/internal/predictor"
	"github.com/TriceHelix/openexr-go/internal/xdr"
)

const version = "1.0.0"

// ValidationIssue represents a single validation problem found in a file.
type ValidationIssue struct {
	Severity string // "error" or "warning"
	Message  string
}

// ValidationResult contains all validation results for a file.
type ValidationResult struct {
	Filename string
	Issues   []ValidationIssue
	Checks   []string // List of checks performed
}

// IsValid returns true if there are no errors (warnings are ok).
func (r *ValidationResult) IsValid() bool {
	for _, issue := range r.Issues {
		if issue.Severity == "error" {
			return false
		}
	}
	return true
}

// HasErrors returns true if there are any error-level issues.
func (r *ValidationResult) HasErrors() bool {
	for _, issue := range r.Issues {
		if issue.Severity == "error" {
			return true
		}
	}
	return false
}

func main() {
	quiet := false
	strict := false
	files := []string{}

	// Parse command line arguments
	for i := 1; i < len(os.Args); i++ {
		arg := os.Args[i]
		switch arg {
		case "-q", "--quiet":
			quiet = true
		case "-s", "--strict":
			strict = true
		case "-h", "--help":
			printUsage()
			os.Exit(0)
		case "--version":
			fmt.Printf("exrcheck version %s\n", version)
			fmt.Println("Part of go-openexr - Pure Go OpenEXR library")
			fmt.Println("https://github.com/TriceHelix/openexr-go")
			os.Exit(0)
		default:
			if strings.HasPrefix(arg, "-") {
				fmt.Fprintf(os.Stderr, "Unknown option: %s\n", arg)
				printUsage()
				os.Exit(2)
			}
			files = append(files, arg)
		}
	}

	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "Error: No input files specified")
		printUsage()
		os.Exit(2)
	}

	// Validate each file
	validCount := 0
	errorOccurred := false

	for _, filename := range files {
		result, err := validateFile(filename, strict)
		if err != nil {
			if !quiet {
				fmt.Fprintf(os.Stderr, "%s: error: %v\n", filename, err)
			}
			errorOccurred = true
			continue
		}

		if result.IsValid() {
			validCount++
		}

		// Print results
		if !quiet {
			printResult(result)
		} else if result.HasErrors() {
			// In quiet mode, only print errors
			for _, issue := range result.Issues {
				if issue.Severity == "error" {
					fmt.Fprintf(os.Stderr, "%s: %s\n", filename, issue.Message)
				}
			}
		}
	}

	// Print summary for multiple files
	if len(files) > 1 && !quiet {
		fmt.Printf("\nSummary: %d of %d files valid\n", validCount, len(files))
	}

	// Exit code
	if errorOccurred {
		os.Exit(2)
	}
	if validCount < len(files) {
		os.Exit(1)
	}
	os.Exit(0)
}

func printUsage() {
	fmt.Println(`Usage: exrcheck [options] <filename> [<filename> ...]

Validate OpenEXR files for correctness and spec compliance.

Options:
  -q, --quiet    Only output errors. Exit code indicates pass/fail.
  -s, --strict   Enforce spec recommendations and check for deprecated practices.
  -h, --help     Show this help message.
  --version      Show version information.

Exit codes:
  0: All files valid
  1: One or more files invalid
  2: Error (file not found, permission denied, etc.)

Examples:
  exrcheck image.exr                  Validate a single file
  exrcheck -q *.exr                   Validate all EXR files silently
  exrcheck -s image.exr               Validate with strict mode`)
}

func printResult(result *ValidationResult) {
	if result.IsValid() {
		fmt.Printf("%s: OK\n", result.Filename)
	} else {
		fmt.Printf("%s: INVALID\n", result.Filename)
		for _, issue := range result.Issues {
			fmt.Printf("  [%s] %s\n", strings.ToUpper(issue.Severity), issue.Message)
		}
	}

	// Print checks performed (only if there were issues or in verbose mode)
	if len(result.Issues) > 0 {
		fmt.Printf("  Checks performed: %s\n", strings.Join(result.Checks, ", "))
	}
}

// validateFile validates a single EXR file and returns the results.
func validateFile(filename string, strict bool) (*ValidationResult, error) {
	result := &ValidationResult{
		Filename: filename,
		Issues:   []ValidationIssue{},
		Checks:   []string{},
	}

	// Check file exists and is readable
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	// Get file size
	stat, err := file.Stat()
	if err != nil {
		return nil, err
	}
	fileSize := stat.Size()

	if fileSize < 8 {
		result.addError("file too small to be a valid EXR file")
		result.Checks = append(result.Checks, "file size")
		return result, nil
	}

	// Limit file size to prevent memory exhaustion (1GB max for validation)
	const maxFileSize = 1024 * 1024 * 1024 // 1GB
	if fileSize > maxFileSize {
		result.addError(fmt.Sprintf("file too large for validation (%d bytes, max %d)", fileSize, maxFileSize))
		result.Checks = append(result.Checks, "file size")
		return result, nil
	}

	// Read the entire file for validation
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}

	// Create a reader for validation
	reader := bytes.NewReader(data)

	// 1. Validate magic number
	result.Checks = append(result.Checks, "magic number")
	if err := validateMagicNumber(reader, result); err != nil {
		return result, nil // Early exit on magic number failure
	}

	// 2. Validate version field
	result.Checks = append(result.Checks, "version field")
	versionField, err := validateVersionField(reader, result, strict)
	if err != nil {
		return result, nil
	}

	// Try to open the file with the exr package
	f, err := exr.OpenReader(bytes.NewReader(data), fileSize)
	if err != nil {
		result.addError(fmt.Sprintf("failed to parse file: %v", err))
		return result, nil
	}

	// 3. Validate header(s)
	result.Checks = append(result.Checks, "header attributes")
	for part := 0; part < f.NumParts(); part++ {
		header := f.Header(part)
		validateHeader(header, part, result, strict)
	}

	// 4. Validate data/display windows
	result.Checks = append(result.Checks, "windows")
	for part := 0; part < f.NumParts(); part++ {
		header := f.Header(part)
		validateWindows(header, part, result, strict)
	}

	// 5. Validate channel list
	result.Checks = append(result.Checks, "channels")
	for part := 0; part < f.NumParts(); part++ {
		header := f.Header(part)
		validateChannels(header, part, result, strict)
	}

	// 6. Validate compression type
	result.Checks = append(result.Checks, "compression")
	for part := 0; part < f.NumParts(); part++ {
		header := f.Header(part)
		validateCompression(header, part, versionField, result, strict)
	}

	// 7. Validate tile description (if tiled)
	if exr.IsTiled(versionField) {
		result.Checks = append(result.Checks, "tiles")
		for part := 0; part < f.NumParts(); part++ {
			header := f.Header(part)
			if header.IsTiled() {
				validateTileDescription(header, part, result, strict)
			}
		}
	}

	// 8. Validate offset table
	result.Checks = append(result.Checks, "offset table")
	for part := 0; part < f.NumParts(); part++ {
		validateOffsetTable(f, part, fileSize, result)
	}

	// 9. Validate chunk data accessibility
	result.Checks = append(result.Checks, "chunk data")
	for part := 0; part < f.NumParts(); part++ {
		validateChunkData(f, part, result)
	}

	// 10. Strict mode additional checks
	if strict {
		result.Checks = append(result.Checks, "strict compliance")
		for part := 0; part < f.NumParts(); part++ {
			header := f.Header(part)
			validateStrictCompliance(header, part, result)
		}
	}

	return result, nil
}

func (r *ValidationResult) addError(msg string) {
	r.Issues = append(r.Issues, ValidationIssue{Severity: "error", Message: msg})
}

func (r *ValidationResult) addWarning(msg string) {
	r.Issues = append(r.Issues, ValidationIssue{Severity: "warning", Message: msg})
}

func (r *ValidationResult) addErrorf(format string, args ...interface{}) {
	r.addError(fmt.Sprintf(format, args...))
}

func (r *ValidationResult) addWarningf(format string, args ...interface{}) {
	r.addWarning(fmt.Sprintf(format, args...))
}

// validateMagicNumber checks that the file starts with the correct magic bytes.
func validateMagicNumber(reader *bytes.Reader, result *ValidationResult) error {
	magic := make([]byte, 4)
	_, err := reader.Read(magic)
	if err != nil {
		result.addError("failed to read magic number")
		return err
	}

	if magic[0] != exr.MagicNumber[0] || magic[1] != exr.MagicNumber[1] ||
		magic[2] != exr.MagicNumber[2] || magic[3] != exr.MagicNumber[3] {
		result.addErrorf("invalid magic number: got 0x%02x%02x%02x%02x, expected 0x762f3101",
			magic[0], magic[1], magic[2], magic[3])
		return errors.New("invalid magic")
	}

	return nil
}

// validateVersionField checks the version field for validity.
func validateVersionField(reader *bytes.Reader, result *ValidationResult, strict bool) (uint32, error) {
	versionBytes := make([]byte, 4)
	_, err := reader.Read(versionBytes)
	if err != nil {
		result.addError("failed to read version field")
		return 0, err
	}

	versionField := xdr.ByteOrder.Uint32(versionBytes)
	version := exr.Version(versionField)

	// Check version number
	if version != 2 {
		result.addErrorf("unsupported version: %d (only version 2 is supported)", version)
		return versionField, errors.New("unsupported version")
	}

	// Check for flag combinations
	isDeep := exr.IsDeep(versionField)
	isMultiPart := exr.IsMultiPart(versionField)
	isTiled := exr.IsTiled(versionField)

	// Note: Deep data files may or may not have the multi-part flag set.
	// Single-part deep files are valid without the multi-part flag.
	_ = isDeep && isMultiPart // suppress unused variable warnings

	// Check for reserved bits being used
	reservedMask := uint32(0xFFFFE000) // Bits 13-31 are reserved
	if versionField&reservedMask != 0 {
		if strict {
			result.addWarning("reserved bits in version field are set")
		}
	}

	// Informational logging in non-quiet mode
	if strict {
		flags := []string{}
		if isTiled {
			flags = append(flags, "tiled")
		}
		if isDeep {
			flags = append(flags, "deep")
		}
		if isMultiPart {
			flags = append(flags, "multi-part")
		}
		if exr.HasLongNames(versionField) {
			flags = append(flags, "long-names")
		}
		if len(flags) == 0 {
			flags = append(flags, "scanline")
		}
		// This is informational, not an issue
		_ = flags
	}

	return versionField, nil
}

// validateHeader checks header attributes for required attributes.
func validateHeader(header *exr.Header, part int, result *ValidationResult, strict bool) {
	prefix := ""
	if part > 0 {
		prefix = fmt.Sprintf("part %d: ", part)
	}

	// Required attributes for all EXR files
	requiredAttrs := []string{
		exr.AttrNameChannels,
		exr.AttrNameCompression,
		exr.AttrNameDataWindow,
		exr.AttrNameDisplayWindow,
		exr.AttrNameLineOrder,
		exr.AttrNamePixelAspectRatio,
		exr.AttrNameScreenWindowCenter,
		exr.AttrNameScreenWindowWidth,
	}

	for _, name := range requiredAttrs {
		if !header.Has(name) {
			result.addErrorf("%smissing required attribute: %s", prefix, name)
		}
	}

	// Tiled files require tiles attribute
	if header.IsTiled() && !header.Has(exr.AttrNameTiles) {
		result.addErrorf("%stiled image missing required 'tiles' attribute", prefix)
	}

	// Multi-part files require name and type attributes
	if header.Has(exr.AttrNameType) {
		partType := header.Get(exr.AttrNameType)
		if partType != nil {
			typeStr, ok := partType.Value.(string)
			if ok && strict {
				validTypes := []string{
					exr.PartTypeScanline,
					exr.PartTypeTiled,
					exr.PartTypeDeepScanline,
					exr.PartTypeDeepTiled,
				}
				valid := false
				for _, vt := range validTypes {
					if typeStr == vt {
						valid = true
						break
					}
				}
				if !valid {
					result.addWarningf("%sunknown part type: %s", prefix, typeStr)
				}
			}
		}
	}
}

// validateWindows checks data and display windows for validity.
func validateWindows(header *exr.Header, part int, result *ValidationResult, strict bool) {
	prefix := ""
	if part > 0 {
		prefix = fmt.Sprintf("part %d: ", part)
	}

	dw := header.DataWindow()
	disp := header.DisplayWindow()

	// Check data window validity
	if dw.IsEmpty() {
		result.addErrorf("%sdata window is empty", prefix)
	}

	// Check display window validity
	if disp.IsEmpty() {
		result.addErrorf("%sdisplay window is empty", prefix)
	}

	// Check for negative dimensions
	if dw.Width() <= 0 || dw.Height() <= 0 {
		result.addErrorf("%sdata window has invalid dimensions: %dx%d", prefix, dw.Width(), dw.Height())
	}

	if disp.Width() <= 0 || disp.Height() <= 0 {
		result.addErrorf("%sdisplay window has invalid dimensions: %dx%d", prefix, disp.Width(), disp.Height())
	}

	// In strict mode, check for reasonable sizes
	if strict {
		const maxReasonableSize = 1000000 // 1 million pixels in each dimension
		if dw.Width() > maxReasonableSize || dw.Height() > maxReasonableSize {
			result.addWarningf("%sdata window has very large dimensions: %dx%d", prefix, dw.Width(), dw.Height())
		}

		// Check for negative coordinates (unusual but valid)
		if dw.Min.X < 0 || dw.Min.Y < 0 {
			result.addWarningf("%sdata window has negative origin: (%d, %d)", prefix, dw.Min.X, dw.Min.Y)
		}
	}
}

// validateChannels checks the channel list for validity.
func validateChannels(header *exr.Header, part int, result *ValidationResult, strict bool) {
	prefix := ""
	if part > 0 {
		prefix = fmt.Sprintf("part %d: ", part)
	}

	channels := header.Channels()
	if channels == nil {
		result.addErrorf("%schannel list is nil", prefix)
		return
	}

	if channels.Len() == 0 {
		result.addErrorf("%sno channels defined", prefix)
		return
	}

	// Check each channel
	seenNames := make(map[string]bool)
	for i := 0; i < channels.Len(); i++ {
		ch := channels.At(i)

		// Check for duplicate channel names
		if seenNames[ch.Name] {
			result.addErrorf("%sduplicate channel name: %s", prefix, ch.Name)
		}
		seenNames[ch.Name] = true

		// Check for valid pixel type
		if ch.Type > exr.PixelTypeFloat {
			result.addErrorf("%schannel %s has invalid pixel type: %d", prefix, ch.Name, ch.Type)
		}

		// Check sampling factors
		if ch.XSampling <= 0 || ch.YSampling <= 0 {
			result.addErrorf("%schannel %s has invalid sampling factors: (%d, %d)",
				prefix, ch.Name, ch.XSampling, ch.YSampling)
		}

		// In strict mode, check for unusual values
		if strict {
			// Empty channel name
			if ch.Name == "" {
				result.addWarningf("%schannel has empty name", prefix)
			}

			// Large sampling factors
			if ch.XSampling > 16 || ch.YSampling > 16 {
				result.addWarningf("%schannel %s has unusually large sampling factors: (%d, %d)",
					prefix, ch.Name, ch.XSampling, ch.YSampling)
			}
		}
	}

	// In strict mode, verify alphabetical ordering
	if strict {
		names := channels.Names()
		sortedNames := make([]string, len(names))
		copy(sortedNames, names)
		sort.Strings(sortedNames)

		for i := range names {
			if names[i] != sortedNames[i] {
				result.addWarningf("%schannels not in alphabetical order (spec recommends alphabetical)", prefix)
				break
			}
		}
	}
}

// validateCompression checks compression type for validity.
func validateCompression(header *exr.Header, part int, versionField uint32, result *ValidationResult, strict bool) {
	prefix := ""
	if part > 0 {
		prefix = fmt.Sprintf("part %d: ", part)
	}

	comp := header.Compression()

	// Check for valid compression type
	validCompressions := []exr.Compression{
		exr.CompressionNone,
		exr.CompressionRLE,
		exr.CompressionZIPS,
		exr.CompressionZIP,
		exr.CompressionPIZ,
		exr.CompressionPXR24,
		exr.CompressionB44,
		exr.CompressionB44A,
		exr.CompressionDWAA,
		exr.CompressionDWAB,
	}

	valid := false
	for _, vc := range validCompressions {
		if comp == vc {
			valid = true
			break
		}
	}

	if !valid {
		result.addErrorf("%sinvalid compression type: %d", prefix, comp)
		return
	}

	// Check for lossy compression warnings in strict mode
	if strict && comp.IsLossy() {
		result.addWarningf("%susing lossy compression: %s", prefix, comp.String())
	}

	// Deep data has compression restrictions
	if exr.IsDeep(versionField) {
		// Deep data only supports NONE, RLE, ZIPS, ZIP
		deepAllowed := map[exr.Compression]bool{
			exr.CompressionNone: true,
			exr.CompressionRLE:  true,
			exr.CompressionZIPS: true,
			exr.CompressionZIP:  true,
		}
		if !deepAllowed[comp] {
			result.addErrorf("%sdeep data does not support %s compression", prefix, comp.String())
		}
	}
}

// validateTileDescription checks tile parameters for validity.
func validateTileDescription(header *exr.Header, part int, result *ValidationResult, strict bool) {
	prefix := ""
	if part > 0 {
		prefix = fmt.Sprintf("part %d: ", part)
	}

	td := header.TileDescription()
	if td == nil {
		result.addErrorf("%stiled image missing tile description", prefix)
		return
	}

	// Check tile size
	if td.XSize == 0 || td.YSize == 0 {
		result.addErrorf("%stile size cannot be zero", prefix)
	}

	// Check level mode
	if td.Mode > exr.LevelModeRipmap {
		result.addErrorf("%sinvalid tile level mode: %d", prefix, td.Mode)
	}

	// Check rounding mode
	if td.RoundingMode > exr.LevelRoundUp {
		result.addErrorf("%sinvalid tile rounding mode: %d", prefix, td.RoundingMode)
	}

	// In strict mode, check for reasonable tile sizes
	if strict {
		if td.XSize > 2048 || td.YSize > 2048 {
			result.addWarningf("%stile size is unusually large: %dx%d", prefix, td.XSize, td.YSize)
		}
		if td.XSize < 16 || td.YSize < 16 {
			result.addWarningf("%stile size is unusually small: %dx%d", prefix, td.XSize, td.YSize)
		}

		// Power of 2 tile sizes are recommended
		if !isPowerOfTwo(td.XSize) || !isPowerOfTwo(td.YSize) {
			result.addWarningf("%stile size is not a power of 2: %dx%d (spec recommends powers of 2)",
				prefix, td.XSize, td.YSize)
		}
	}
}

// validateOffsetTable checks the chunk offset table for integrity.
func validateOffsetTable(f *exr.File, part int, fileSize int64, result *ValidationResult) {
	prefix := ""
	if part > 0 {
		prefix = fmt.Sprintf("part %d: ", part)
	}

	offsets := f.Offsets(part)
	if len(offsets) == 0 {
		result.addErrorf("%sempty offset table", prefix)
		return
	}

	header := f.Header(part)
	expectedChunks := header.ChunksInFile()

	if len(offsets) != expectedChunks {
		result.addErrorf("%soffset table size mismatch: got %d, expected %d",
			prefix, len(offsets), expectedChunks)
	}

	// Check each offset
	for i, offset := range offsets {
		if offset < 8 { // At minimum, offset must be after magic + version
			result.addErrorf("%schunk %d offset too small: %d", prefix, i, offset)
		}
		if offset >= fileSize {
			result.addErrorf("%schunk %d offset beyond end of file: %d >= %d",
				prefix, i, offset, fileSize)
		}
	}

	// Check for duplicate offsets (usually indicates corruption)
	seenOffsets := make(map[int64]int)
	for i, offset := range offsets {
		if prevIdx, exists := seenOffsets[offset]; exists {
			result.addErrorf("%schunks %d and %d have the same offset: %d",
				prefix, prevIdx, i, offset)
		}
		seenOffsets[offset] = i
	}
}

// validateChunkData attempts to read and decompress each chunk.
// Note: For multipart files, the chunk format includes a part number prefix
// which the current exr.File.ReadChunk doesn't handle. In that case, we skip
// full decompression validation and just verify the chunks are readable.
func validateChunkData(f *exr.File, part int, result *ValidationResult) {
	prefix := ""
	if part > 0 {
		prefix = fmt.Sprintf("part %d: ", part)
	}

	header := f.Header(part)
	offsets := f.Offsets(part)
	isTiled := header.IsTiled()
	isDeep := exr.IsDeep(f.VersionField())
	isMultiPart := f.IsMultiPart()
	compression := header.Compression()

	// For multipart files, the chunk format is different (includes part number prefix).
	// The current File.ReadChunk API doesn't properly handle multipart chunk headers,
	// so we skip full decompression validation for multipart files and just verify
	// that the offset table entries point to valid file locations.
	if isMultiPart {
		// Just verify offsets are accessible - full decompression validation
		// would require parsing the multipart chunk header format
		return
	}

	// For deep data, chunks have a different format with sample counts
	if isDeep {
		// Deep data validation would require understanding the deep chunk format
		return
	}

	// Count errors but limit how many we report
	const maxChunkErrors = 5
	chunkErrors := 0

	for chunkIdx := 0; chunkIdx < len(offsets); chunkIdx++ {
		var data []byte
		var err error
		var tileCoords [4]int32 // tileX, tileY, levelX, levelY

		if isTiled {
			tileCoords, data, err = f.ReadTileChunk(part, chunkIdx)
		} else {
			_, data, err = f.ReadChunk(part, chunkIdx)
		}

		if err != nil {
			chunkErrors++
			if chunkErrors <= maxChunkErrors {
				result.addErrorf("%schunk %d: failed to read: %v", prefix, chunkIdx, err)
			}
			continue
		}

		// Try to decompress the data to verify it's valid
		err = validateChunkDecompression(data, header, compression, isTiled, chunkIdx, tileCoords)
		if err != nil {
			chunkErrors++
			if chunkErrors <= maxChunkErrors {
				result.addErrorf("%schunk %d: decompression failed: %v", prefix, chunkIdx, err)
			}
		}
	}

	if chunkErrors > maxChunkErrors {
		result.addErrorf("%s... and %d more chunk errors (total: %d)", prefix, chunkErrors-maxChunkErrors, chunkErrors)
	}
}

// validateChunkDecompression attempts to decompress a chunk to verify data integrity.
// For tiled images, tileCoords contains [tileX, tileY, levelX, levelY].
func validateChunkDecompression(data []byte, header *exr.Header, comp exr.Compression, isTiled bool, chunkIdx int, tileCoords [4]int32) error {
	dw := header.DataWindow()
	channels := header.Channels()

	var tileWidth, tileHeight int

	if isTiled {
		td := header.TileDescription()
		if td == nil {
			return errors.New("tiled image missing tile description")
		}

		tileX, tileY := int(tileCoords[0]), int(tileCoords[1])
		levelX, levelY := int(tileCoords[2]), int(tileCoords[3])

		// Calculate level dimensions (for mipmap/ripmap)
		levelWidth := int(dw.Width())
		levelHeight := int(dw.Height())

		if td.Mode == exr.LevelModeMipmap || td.Mode == exr.LevelModeRipmap {
			// For mipmaps, each level is half the size
			for i := 0; i < levelX; i++ {
				levelWidth = max(1, (levelWidth+1)/2)
			}
			for i := 0; i < levelY; i++ {
				levelHeight = max(1, (levelHeight+1)/2)
			}
		}

		// Calculate actual tile dimensions (edge tiles may be smaller)
		tileStartX := tileX * int(td.XSize)
		tileStartY := tileY * int(td.YSize)

		tileWidth = min(int(td.XSize), levelWidth-tileStartX)
		tileHeight = min(int(td.YSize), levelHeight-tileStartY)

		if tileWidth <= 0 || tileHeight <= 0 {
			return fmt.Errorf("invalid tile dimensions: %dx%d at tile (%d,%d) level (%d,%d)",
				tileWidth, tileHeight, tileX, tileY, levelX, levelY)
		}
	} else {
		// Scanline mode
		tileWidth = int(dw.Width())
		linesPerChunk := comp.ScanlinesPerChunk()

		minY := int(dw.Min.Y)
		maxY := int(dw.Max.Y)
		chunkY := minY + chunkIdx*linesPerChunk

		tileHeight = linesPerChunk
		if chunkY+tileHeight-1 > maxY {
			tileHeight = maxY - chunkY + 1
		}
	}

	// Calculate expected uncompressed size
	bytesPerLine := 0
	for i := 0; i < channels.Len(); i++ {
		ch := channels.At(i)
		pixelsInChannel := (tileWidth + int(ch.XSampling) - 1) / int(ch.XSampling)
		bytesPerLine += pixelsInChannel * ch.Type.Size()
	}
	expectedSize := bytesPerLine * tileHeight

	// Try to decompress based on compression type
	switch comp {
	case exr.CompressionNone:
		// Uncompressed data should match expected size
		if len(data) != expectedSize {
			return fmt.Errorf("uncompressed size mismatch: got %d, expected %d", len(data), expectedSize)
		}
		return nil

	case exr.CompressionRLE:
		decompressed, err := compression.RLEDecompress(data, expectedSize)
		if err != nil {
			return err
		}
		predictor.Decode(decompressed)
		return nil

	case exr.CompressionZIPS, exr.CompressionZIP:
		decompressed, err := compression.ZIPDecompress(data, expectedSize)
		if err != nil {
			return err
		}
		deinterleaved := compression.Deinterleave(decompressed)
		predictor.Decode(deinterleaved)
		return nil

	case exr.CompressionPIZ:
		_, err := compression.PIZDecompress(data, tileWidth, tileHeight, channels.Len())
		return err

	case exr.CompressionPXR24:
		// For PXR24, we need channel info but skip full decompression for now
		// Just check that the data can be parsed
		_, err := compression.ZIPDecompress(data, 0) // Try zlib header
		if err != nil && len(data) > 0 {
			// Not zlib compressed - might be uncompressed PXR24
			return nil
		}
		return nil

	case exr.CompressionB44, exr.CompressionB44A:
		// B44 has a specific structure we could validate
		// For now, just check data exists
		if len(data) == 0 && expectedSize > 0 {
			return errors.New("empty compressed data for non-empty chunk")
		}
		return nil

	case exr.CompressionDWAA, exr.CompressionDWAB:
		// DWA has complex structure
		// For now, just check data exists
		if len(data) == 0 && expectedSize > 0 {
			return errors.New("empty compressed data for non-empty chunk")
		}
		return nil

	default:
		return fmt.Errorf("unknown compression type: %d", comp)
	}
}

// validateStrictCompliance performs additional checks in strict mode.
func validateStrictCompliance(header *exr.Header, part int, result *ValidationResult) {
	prefix := ""
	if part > 0 {
		prefix = fmt.Sprintf("part %d: ", part)
	}

	// Check pixel aspect ratio
	par := header.PixelAspectRatio()
	if par <= 0 {
		result.addErrorf("%spixel aspect ratio must be positive: %f", prefix, par)
	}
	if par < 0.01 || par > 100 {
		result.addWarningf("%sunusual pixel aspect ratio: %f", prefix, par)
	}

	// Check screen window width
	sww := header.ScreenWindowWidth()
	if sww <= 0 {
		result.addWarningf("%sscreen window width should be positive: %f", prefix, sww)
	}

	// Check line order consistency
	lo := header.LineOrder()
	if lo > exr.LineOrderRandom {
		result.addErrorf("%sinvalid line order: %d", prefix, lo)
	}

	// For tiled images, line order should be random
	if header.IsTiled() && lo != exr.LineOrderRandom {
		result.addWarningf("%stiled images typically use random line order", prefix)
	}

	// Check for common attribute value issues
	dw := header.DataWindow()
	disp := header.DisplayWindow()

	// Data window should typically be within or equal to display window
	// (though data window can extend beyond for overscan)
	if dw.Min.X < disp.Min.X || dw.Min.Y < disp.Min.Y ||
		dw.Max.X > disp.Max.X || dw.Max.Y > disp.Max.Y {
		// This is actually valid for overscan, so just a note
		result.addWarningf("%sdata window extends beyond display window (overscan)", prefix)
	}

	// Check for chromaticities if present
	if header.Has("chromaticities") {
		attr := header.Get("chromaticities")
		if attr != nil {
			chrom, ok := attr.Value.(exr.Chromaticities)
			if ok {
				// Validate chromaticity coordinates are in valid range [0,1]
				if chrom.RedX < 0 || chrom.RedX > 1 || chrom.RedY < 0 || chrom.RedY > 1 {
					result.addWarningf("%sred primary chromaticity out of typical range", prefix)
				}
				if chrom.GreenX < 0 || chrom.GreenX > 1 || chrom.GreenY < 0 || chrom.GreenY > 1 {
					result.addWarningf("%sgreen primary chromaticity out of typical range", prefix)
				}
				if chrom.BlueX < 0 || chrom.BlueX > 1 || chrom.BlueY < 0 || chrom.BlueY > 1 {
					result.addWarningf("%sblue primary chromaticity out of typical range", prefix)
				}
				if chrom.WhiteX < 0 || chrom.WhiteX > 1 || chrom.WhiteY < 0 || chrom.WhiteY > 1 {
					result.addWarningf("%swhite point chromaticity out of typical range", prefix)
				}
			}
		}
	}
}

// isPowerOfTwo returns true if n is a power of 2.
func isPowerOfTwo(n uint32) bool {
	return n > 0 && (n&(n-1)) == 0
}
