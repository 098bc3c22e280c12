// internal/domain/tabelas.go
package domain

import "fmt"

// Alíquotas internas de ICMS por UF.
var aliquotasInternas = map[string]float64{
	"AC": 17, "AL": 18, "AM": 18, "AP": 18, "BA": 18, "CE": 18,
	"DF": 18, "ES": 17, "GO": 17, "MA": 18, "MG": 18, "MS": 17,
	"MT": 17, "PA": 17, "PB": 18, "PE": 18, "PI": 18, "PR": 18,
	"RJ": 20, "RN": 18, "RO": 17.5, "RR": 17, "RS": 18, "SC": 17,
	"SE": 18, "SP": 18, "TO": 18,
}

// Percentual do Fundo de Combate à Pobreza por UF de destino.
// UFs ausentes não cobram FCP.
var aliquotasFcp = map[string]float64{
	"AL": 1, "BA": 2, "CE": 2, "GO": 2, "MA": 2, "MG": 2,
	"MS": 2, "PB": 2, "PE": 2, "PI": 1, "RJ": 2, "RN": 2,
	"RS": 2, "SE": 1, "TO": 2,
}

// Origens com alíquota interestadual de 7% quando o destino está fora do
// bloco Sul/Sudeste (o ES conta como destino favorecido).
var origensSeteTaxa = map[string]bool{
	"SP": true, "RJ": true, "MG": true, "PR": true, "SC": true, "RS": true,
}

// CFOPs de entrada interestadual sujeitos a DIFAL, por destinação.
var cfopsDifal = map[string]Destinacao{
	"2551": DestinacaoAtivoImobilizado,
	"2552": DestinacaoAtivoImobilizado,
	"2556": DestinacaoUsoConsumo,
	"2557": DestinacaoUsoConsumo,
}

// Dois primeiros dígitos do código IBGE de município por UF.
var ufPorCodigoIbge = map[string]string{
	"11": "RO", "12": "AC", "13": "AM", "14": "RR", "15": "PA", "16": "AP",
	"17": "TO", "21": "MA", "22": "PI", "23": "CE", "24": "RN", "25": "PB",
	"26": "PE", "27": "AL", "28": "SE", "29": "BA", "31": "MG", "32": "ES",
	"33": "RJ", "35": "SP", "41": "PR", "42": "SC", "43": "RS", "50": "MS",
	"51": "MT", "52": "GO", "53": "DF",
}

// UfPorCodigoMunicipio deriva a UF de um código IBGE de município (registro
// 0150). Vazio quando o código não identifica uma UF.
func UfPorCodigoMunicipio(codMun string) string {
	if len(codMun) < 2 {
		return ""
	}
	return ufPorCodigoIbge[codMun[:2]]
}

// DestinacaoPorCfop informa se o CFOP entra no cálculo de DIFAL e com qual
// destinação.
func DestinacaoPorCfop(cfop string) (Destinacao, bool) {
	d, ok := cfopsDifal[cfop]
	return d, ok
}

// UfConhecida informa se a sigla consta na tabela de alíquotas.
func UfConhecida(uf string) bool {
	_, ok := aliquotasInternas[uf]
	return ok
}

// AliquotaInterna retorna a alíquota interna de ICMS da UF.
func AliquotaInterna(uf string) (float64, error) {
	aliq, ok := aliquotasInternas[uf]
	if !ok {
		return 0, fmt.Errorf("UF desconhecida: %q", uf)
	}
	return aliq, nil
}

// AliquotaFcp retorna o percentual de FCP da UF de destino (zero quando a UF
// não cobra o adicional).
func AliquotaFcp(uf string) (float64, error) {
	if !UfConhecida(uf) {
		return 0, fmt.Errorf("UF desconhecida: %q", uf)
	}
	return aliquotasFcp[uf], nil
}

// AliquotaInterestadual retorna a alíquota interestadual estatutária entre
// origem e destino: 7% do bloco Sul/Sudeste (exceto ES) para as demais
// regiões, 12% nos demais pares. Operação interna não gera DIFAL.
func AliquotaInterestadual(origem, destino string) (float64, error) {
	if !UfConhecida(origem) {
		return 0, fmt.Errorf("UF de origem desconhecida: %q", origem)
	}
	if !UfConhecida(destino) {
		return 0, fmt.Errorf("UF de destino desconhecida: %q", destino)
	}
	if origem == destino {
		return 0, fmt.Errorf("operação interna (%s para %s) não gera DIFAL", origem, destino)
	}
	if origensSeteTaxa[origem] && !origensSeteTaxa[destino] {
		return 7, nil
	}
	return 12, nil
}
