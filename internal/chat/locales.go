package chat

import (
	"fmt"

	"intake/pkg/domain"
)

// catalog holds the respondent-facing strings per language. Missing keys
// fall back to English; respondents never see a raw key.
var catalog = map[domain.Language]map[string]string{
	domain.LanguageEnglish: {
		"capture_prompt":     "Before we begin, please open the verification page and follow the instructions.",
		"welcome":            "Thank you! Let's begin. Answer each question with a message.",
		"question":           "Question %d of %d:\n%s",
		"resumed":            "Welcome back! You have answered %d of %d questions. Let's continue.",
		"document_prompt":    "Almost done. Please send a photo of your identity document.",
		"liveness_prompt":    "Got it. Now record a short video of yourself (a round video note works too).",
		"done":               "All done, thank you! An operator will contact you shortly.",
		"cancelled":          "Your session has been cancelled. You can start over with your invite link.",
		"empty_answer":       "Please answer with a non-empty message.",
		"expect_document":    "Please send a photo of your document to continue.",
		"expect_liveness":    "Please send a short video of yourself to continue.",
		"invite_invalid":     "This invite link is not valid. Please check with the person who sent it.",
		"operator_refused":   "Operator accounts cannot take questionnaires.",
		"conflict":           "You already have a questionnaire in progress. Finish or cancel it first.",
		"session_expired":    "Your verification session has expired. Please open your invite link again.",
		"verify_failed":      "Device verification failed. Please try opening the verification page again.",
		"no_questions":       "The questionnaire is not ready yet. Please try again later.",
		"try_again":          "Something went wrong on our side. Please try again.",
	},
	domain.LanguageRussian: {
		"capture_prompt":     "Прежде чем начать, откройте страницу проверки и следуйте инструкциям.",
		"welcome":            "Спасибо! Начнём. Отвечайте на каждый вопрос сообщением.",
		"question":           "Вопрос %d из %d:\n%s",
		"resumed":            "С возвращением! Вы ответили на %d из %d вопросов. Продолжим.",
		"document_prompt":    "Почти готово. Пришлите, пожалуйста, фото документа, удостоверяющего личность.",
		"liveness_prompt":    "Принято. Теперь запишите короткое видео с собой (подойдёт и кружок).",
		"done":               "Готово, спасибо! Оператор свяжется с вами в ближайшее время.",
		"cancelled":          "Ваша сессия отменена. Вы можете начать заново по ссылке-приглашению.",
		"empty_answer":       "Пожалуйста, ответьте непустым сообщением.",
		"expect_document":    "Чтобы продолжить, пришлите фото документа.",
		"expect_liveness":    "Чтобы продолжить, пришлите короткое видео с собой.",
		"invite_invalid":     "Эта ссылка-приглашение недействительна. Уточните у отправителя.",
		"operator_refused":   "Аккаунты операторов не могут проходить анкеты.",
		"conflict":           "У вас уже есть незавершённая анкета. Сначала завершите или отмените её.",
		"session_expired":    "Сессия проверки истекла. Откройте ссылку-приглашение ещё раз.",
		"verify_failed":      "Проверка устройства не пройдена. Попробуйте открыть страницу проверки снова.",
		"no_questions":       "Анкета ещё не готова. Попробуйте позже.",
		"try_again":          "Что-то пошло не так с нашей стороны. Попробуйте ещё раз.",
	},
	domain.LanguageArabic: {
		"capture_prompt":     "قبل أن نبدأ، يرجى فتح صفحة التحقق واتباع التعليمات.",
		"welcome":            "شكرًا لك! لنبدأ. أجب عن كل سؤال برسالة.",
		"question":           "السؤال %d من %d:\n%s",
		"resumed":            "مرحبًا بعودتك! أجبت عن %d من %d أسئلة. لنكمل.",
		"document_prompt":    "اقتربنا من النهاية. يرجى إرسال صورة لوثيقة الهوية الخاصة بك.",
		"liveness_prompt":    "تم الاستلام. الآن سجّل مقطع فيديو قصيرًا لنفسك.",
		"done":               "اكتمل كل شيء، شكرًا لك! سيتواصل معك أحد المشغلين قريبًا.",
		"cancelled":          "تم إلغاء جلستك. يمكنك البدء من جديد عبر رابط الدعوة.",
		"empty_answer":       "يرجى الإجابة برسالة غير فارغة.",
		"expect_document":    "يرجى إرسال صورة لوثيقتك للمتابعة.",
		"expect_liveness":    "يرجى إرسال مقطع فيديو قصير لنفسك للمتابعة.",
		"invite_invalid":     "رابط الدعوة هذا غير صالح. يرجى التحقق من الشخص الذي أرسله.",
		"operator_refused":   "لا يمكن لحسابات المشغلين إجراء الاستبيانات.",
		"conflict":           "لديك استبيان قيد التقدم بالفعل. أكمله أو ألغه أولًا.",
		"session_expired":    "انتهت صلاحية جلسة التحقق. يرجى فتح رابط الدعوة مرة أخرى.",
		"verify_failed":      "فشل التحقق من الجهاز. حاول فتح صفحة التحقق مرة أخرى.",
		"no_questions":       "الاستبيان غير جاهز بعد. يرجى المحاولة لاحقًا.",
		"try_again":          "حدث خطأ من جانبنا. يرجى المحاولة مرة أخرى.",
	},
}

// Text renders a localized catalog string.
func Text(lang domain.Language, key string, args ...any) string {
	msgs, ok := catalog[lang]
	if !ok {
		msgs = catalog[domain.DefaultLanguage]
	}
	format, ok := msgs[key]
	if !ok {
		format = catalog[domain.DefaultLanguage][key]
	}
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}
