package dataset

// Image holds an image the way dataset hubs store image columns in parquet.
type Image struct {
	Bytes []byte `parquet:"bytes" json:"-"`
	Path  string `parquet:"path" json:"path"`
}

// Row is one image/caption training pair
type Row struct {
	FileName string `parquet:"file_name" json:"file_name"`
	Caption  string `parquet:"caption" json:"caption"`
	Image    Image  `parquet:"image" json:"image"`
}
