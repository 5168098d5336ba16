package gateway

import (
	"context"
	stderrors "errors"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"

	"github.com/matzehuels/flowsketch/pkg/errors"
)

// Reason selects the fallback message shown when a call fails.
type Reason string

const (
	ReasonGeneric      Reason = "generic"
	ReasonNetwork      Reason = "network"
	ReasonAuth         Reason = "auth"
	ReasonRateLimit    Reason = "rate_limit"
	ReasonInvalidInput Reason = "invalid_input"
	ReasonNoDiagram    Reason = "no_diagram"
)

// Locales lists the languages fallback messages are available in. The first
// entry is used when nothing matches.
var Locales = []language.Tag{
	language.English,
	language.German,
	language.Spanish,
	language.French,
	language.Chinese,
}

var fallbackText = map[Reason][]string{
	ReasonGeneric: {
		"Sorry, something went wrong while generating your diagram. Please try again.",
		"Beim Erstellen des Diagramms ist ein Fehler aufgetreten. Bitte versuche es erneut.",
		"Lo siento, algo salió mal al generar el diagrama. Inténtalo de nuevo.",
		"Désolé, une erreur s'est produite lors de la génération du diagramme. Veuillez réessayer.",
		"抱歉，生成图表时出错。请重试。",
	},
	ReasonNetwork: {
		"The model service could not be reached. Check your connection and try again.",
		"Der Modelldienst ist nicht erreichbar. Prüfe deine Verbindung und versuche es erneut.",
		"No se pudo contactar con el servicio del modelo. Comprueba tu conexión e inténtalo de nuevo.",
		"Le service du modèle est injoignable. Vérifiez votre connexion et réessayez.",
		"无法连接到模型服务。请检查网络后重试。",
	},
	ReasonAuth: {
		"The model service rejected the API key. Check your configuration.",
		"Der Modelldienst hat den API-Schlüssel abgelehnt. Prüfe deine Konfiguration.",
		"El servicio del modelo rechazó la clave de API. Revisa tu configuración.",
		"Le service du modèle a refusé la clé API. Vérifiez votre configuration.",
		"模型服务拒绝了 API 密钥。请检查配置。",
	},
	ReasonRateLimit: {
		"The model service is busy. Please wait a moment and try again.",
		"Der Modelldienst ist ausgelastet. Bitte warte kurz und versuche es erneut.",
		"El servicio del modelo está ocupado. Espera un momento e inténtalo de nuevo.",
		"Le service du modèle est saturé. Patientez un instant puis réessayez.",
		"模型服务繁忙。请稍后重试。",
	},
	ReasonInvalidInput: {
		"Your message or attachment could not be sent. Check the file type and size.",
		"Deine Nachricht oder dein Anhang konnte nicht gesendet werden. Prüfe Dateityp und Größe.",
		"No se pudo enviar tu mensaje o archivo adjunto. Revisa el tipo y el tamaño del archivo.",
		"Votre message ou pièce jointe n'a pas pu être envoyé. Vérifiez le type et la taille du fichier.",
		"无法发送你的消息或附件。请检查文件类型和大小。",
	},
	ReasonNoDiagram: {
		"The model did not return a corrected diagram. Try editing the source by hand.",
		"Das Modell hat kein korrigiertes Diagramm geliefert. Versuche, den Quelltext von Hand zu bearbeiten.",
		"El modelo no devolvió un diagrama corregido. Intenta editar el código a mano.",
		"Le modèle n'a pas renvoyé de diagramme corrigé. Essayez de modifier la source à la main.",
		"模型未返回修正后的图表。请尝试手动编辑源代码。",
	},
}

var (
	fallbackCatalog = buildCatalog()
	localeMatcher   = language.NewMatcher(Locales)
)

func buildCatalog() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for reason, texts := range fallbackText {
		for i, tag := range Locales {
			_ = b.SetString(tag, string(reason), texts[i])
		}
	}
	return b
}

// MatchLocale returns the supported language closest to a BCP 47 locale or
// Accept-Language header value.
func MatchLocale(locale string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(locale)
	if err != nil || len(tags) == 0 {
		return Locales[0]
	}
	_, idx, _ := localeMatcher.Match(tags...)
	return Locales[idx]
}

// Fallback returns the localized message for reason.
func Fallback(locale string, reason Reason) string {
	p := message.NewPrinter(MatchLocale(locale), message.Catalog(fallbackCatalog))
	return p.Sprintf(string(reason))
}

// reasonFor maps an error to the fallback it should produce.
func reasonFor(err error) Reason {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return ReasonNetwork
	}
	switch errors.GetCode(err) {
	case errors.ErrCodeNetwork:
		return ReasonNetwork
	case errors.ErrCodeUnauthorized:
		return ReasonAuth
	case errors.ErrCodeRateLimited:
		return ReasonRateLimit
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidAttachment, errors.ErrCodeRequestTooLong:
		return ReasonInvalidInput
	}
	return ReasonGeneric
}
