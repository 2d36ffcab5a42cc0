package output

import (
	"io"

	"github.com/brentp/vcfgo"
	"github.com/pkg/errors"
)

// ContigLen names one target contig's length, needed for the VCF
// "##contig" header lines.
type ContigLen struct {
	Name string
	Len  uint64
}

// vcfFilter renders a variant's duplication/overlap tags into the VCF
// FILTER column: PASS when the block the variant fell in was neither
// duplicated nor overlapping, DUP/OVLP otherwise.
func vcfFilter(dup, ovlp bool) string {
	switch {
	case dup:
		return "DUP"
	case ovlp:
		return "OVLP"
	default:
		return "PASS"
	}
}

// WriteVCF writes a VCF 4.2 file via brentp/vcfgo: one "##contig" header
// per target, one record per variant with FILTER=PASS|DUP|OVLP and
// QUAL=60 for PASS records or 10 otherwise.
func WriteVCF(w io.Writer, contigs []ContigLen, variants []VariantRecord, tagOf func(VariantRecord) (dup, ovlp bool)) error {
	header := vcfgo.NewHeader()
	header.SampleNames = nil
	for _, c := range contigs {
		header.Contigs[c.Name] = &vcfgo.Contig{Id: c.Name, Length: int(c.Len)}
	}

	vw, err := vcfgo.NewWriter(w, header)
	if err != nil {
		return errors.Wrap(err, "vcf: create writer")
	}

	for _, v := range variants {
		dup, ovlp := tagOf(v)
		filter := vcfFilter(dup, ovlp)
		qual := 60.0
		if filter != "PASS" {
			qual = 10.0
		}

		ref, alt := v.Ref, v.Alt
		switch v.Kind {
		case 'I':
			ref = "N"
			alt = "N" + v.Alt
		case 'D':
			ref = "N" + v.Ref
			alt = "N"
		}

		variant := &vcfgo.Variant{
			Chromosome: v.Target,
			Pos:        uint64(v.TPos) + 1,
			Id_:        ".",
			Reference:  ref,
			Alternate:  []string{alt},
			Quality:    qual,
			Filter:     filter,
			Header:     header,
		}
		vw.WriteVariant(variant)
	}
	return nil
}
