package catalog

type (
	// Category classifies what kind of garment or accessory a product is.
	Category string
	// Size is a garment size or shoe number.
	Size string
	// Color is the dominant product color.
	Color string
	// Gender is the audience a product targets.
	Gender string
)

const (
	CategoryCamiseta Category = "CAMISETA"
	CategoryCalca    Category = "CALCA"
	CategoryBermuda  Category = "BERMUDA"
	CategoryShorts   Category = "SHORTS"
	CategoryVestido  Category = "VESTIDO"
	CategorySaia     Category = "SAIA"
	CategoryBlusa    Category = "BLUSA"
	CategoryJaqueta  Category = "JAQUETA"
	CategoryCasaco   Category = "CASACO"
	CategoryTenis    Category = "TENIS"
	CategorySapato   Category = "SAPATO"
	CategorySandalia Category = "SANDALIA"
	CategoryBone     Category = "BONE"
	CategoryChapeu   Category = "CHAPEU"
	CategoryBolsa    Category = "BOLSA"
	CategoryMochila  Category = "MOCHILA"
	CategoryCarteira Category = "CARTEIRA"
	CategoryCinto    Category = "CINTO"
)

const (
	SizePP    Size = "PP"
	SizeP     Size = "P"
	SizeM     Size = "M"
	SizeG     Size = "G"
	SizeGG    Size = "GG"
	SizeXG    Size = "XG"
	SizeXXG   Size = "XXG"
	Size34    Size = "TAMANHO_34"
	Size36    Size = "TAMANHO_36"
	Size38    Size = "TAMANHO_38"
	Size40    Size = "TAMANHO_40"
	Size42    Size = "TAMANHO_42"
	Size44    Size = "TAMANHO_44"
	Size46    Size = "TAMANHO_46"
	Size48    Size = "TAMANHO_48"
	SizeUnico Size = "UNICO"
)

const (
	ColorAzul       Color = "AZUL"
	ColorPreto      Color = "PRETO"
	ColorBranco     Color = "BRANCO"
	ColorVermelho   Color = "VERMELHO"
	ColorVerde      Color = "VERDE"
	ColorAmarelo    Color = "AMARELO"
	ColorRosa       Color = "ROSA"
	ColorRoxo       Color = "ROXO"
	ColorLaranja    Color = "LARANJA"
	ColorMarrom     Color = "MARROM"
	ColorCinza      Color = "CINZA"
	ColorBege       Color = "BEGE"
	ColorNavy       Color = "NAVY"
	ColorVinho      Color = "VINHO"
	ColorCreme      Color = "CREME"
	ColorDourado    Color = "DOURADO"
	ColorPrateado   Color = "PRATEADO"
	ColorMulticolor Color = "MULTICOLOR"
)

const (
	GenderMasculino Gender = "MASCULINO"
	GenderFeminino  Gender = "FEMININO"
	GenderUnissex   Gender = "UNISSEX"
)

// Categories is the product category vocabulary.
var Categories = newVocabulary("category",
	Term[Category]{CategoryCamiseta, "Camiseta"},
	Term[Category]{CategoryCalca, "Calça"},
	Term[Category]{CategoryBermuda, "Bermuda"},
	Term[Category]{CategoryShorts, "Shorts"},
	Term[Category]{CategoryVestido, "Vestido"},
	Term[Category]{CategorySaia, "Saia"},
	Term[Category]{CategoryBlusa, "Blusa"},
	Term[Category]{CategoryJaqueta, "Jaqueta"},
	Term[Category]{CategoryCasaco, "Casaco"},
	Term[Category]{CategoryTenis, "Tênis"},
	Term[Category]{CategorySapato, "Sapato"},
	Term[Category]{CategorySandalia, "Sandália"},
	Term[Category]{CategoryBone, "Boné"},
	Term[Category]{CategoryChapeu, "Chapéu"},
	Term[Category]{CategoryBolsa, "Bolsa"},
	Term[Category]{CategoryMochila, "Mochila"},
	Term[Category]{CategoryCarteira, "Carteira"},
	Term[Category]{CategoryCinto, "Cinto"},
)

// Sizes is the size vocabulary.
var Sizes = newVocabulary("size",
	Term[Size]{SizePP, "PP"},
	Term[Size]{SizeP, "P"},
	Term[Size]{SizeM, "M"},
	Term[Size]{SizeG, "G"},
	Term[Size]{SizeGG, "GG"},
	Term[Size]{SizeXG, "XG"},
	Term[Size]{SizeXXG, "XXG"},
	Term[Size]{Size34, "34"},
	Term[Size]{Size36, "36"},
	Term[Size]{Size38, "38"},
	Term[Size]{Size40, "40"},
	Term[Size]{Size42, "42"},
	Term[Size]{Size44, "44"},
	Term[Size]{Size46, "46"},
	Term[Size]{Size48, "48"},
	Term[Size]{SizeUnico, "Único"},
)

// Colors is the color vocabulary.
var Colors = newVocabulary("color",
	Term[Color]{ColorAzul, "Azul"},
	Term[Color]{ColorPreto, "Preto"},
	Term[Color]{ColorBranco, "Branco"},
	Term[Color]{ColorVermelho, "Vermelho"},
	Term[Color]{ColorVerde, "Verde"},
	Term[Color]{ColorAmarelo, "Amarelo"},
	Term[Color]{ColorRosa, "Rosa"},
	Term[Color]{ColorRoxo, "Roxo"},
	Term[Color]{ColorLaranja, "Laranja"},
	Term[Color]{ColorMarrom, "Marrom"},
	Term[Color]{ColorCinza, "Cinza"},
	Term[Color]{ColorBege, "Bege"},
	Term[Color]{ColorNavy, "Navy"},
	Term[Color]{ColorVinho, "Vinho"},
	Term[Color]{ColorCreme, "Creme"},
	Term[Color]{ColorDourado, "Dourado"},
	Term[Color]{ColorPrateado, "Prateado"},
	Term[Color]{ColorMulticolor, "Multicolor"},
)

// Genders is the gender vocabulary.
var Genders = newVocabulary("gender",
	Term[Gender]{GenderMasculino, "Masculino"},
	Term[Gender]{GenderFeminino, "Feminino"},
	Term[Gender]{GenderUnissex, "Unissex"},
)
