package i18n

var tables = map[Language]map[string]string{
	English: {
		"title":              "Betel Leaf Disease Prediction AI",
		"subtitle":           "A Unified AI Portal for Indian Farmers",
		"detect_title":       "Leaf Disease Detection",
		"upload_label":       "Upload Betel Leaf Image",
		"analyze_btn":        "Analyze Leaf",
		"analyzing":          "Analyzing...",
		"disease":            "Disease",
		"confidence":         "Confidence",
		"severity":           "Severity",
		"advice":             "Advice",
		"other_predictions":  "Other possibilities",
		"camera_btn":         "Open Camera",
		"capture_btn":        "Capture",
		"stop_camera_btn":    "Close Camera",
		"remove_btn":         "Remove Image",
		"camera_unavailable": "Camera unavailable. Please upload a photo instead.",
		"prediction_failed":  "Analysis failed. Please try again.",
		"assistant_title":    "Farmer AI Assistant",
		"chat_placeholder":   "Ask about disease, prevention, farming tips...",
		"chat_send":          "Send",
		"chat_empty":         "Ask me anything about your betel vines.",
		"chat_typing":        "Assistant is typing...",
		"history_title":      "Recent Diagnoses",
		"history_empty":      "No diagnoses yet.",
		"language":           "Language",
		"footer":             "Built for farmers. Diagnoses are advisory; consult an agricultural officer for severe cases.",
	},
	Hindi: {
		"title":              "पान पत्ती रोग पहचान एआई",
		"subtitle":           "भारतीय किसानों के लिए एकीकृत एआई पोर्टल",
		"detect_title":       "पत्ती रोग पहचान",
		"upload_label":       "पान की पत्ती की तस्वीर अपलोड करें",
		"analyze_btn":        "विश्लेषण करें",
		"analyzing":          "विश्लेषण हो रहा है...",
		"disease":            "रोग",
		"confidence":         "विश्वास",
		"severity":           "गंभीरता",
		"advice":             "सलाह",
		"other_predictions":  "अन्य संभावनाएँ",
		"camera_btn":         "कैमरा खोलें",
		"capture_btn":        "फ़ोटो लें",
		"stop_camera_btn":    "कैमरा बंद करें",
		"remove_btn":         "तस्वीर हटाएँ",
		"camera_unavailable": "कैमरा उपलब्ध नहीं है। कृपया तस्वीर अपलोड करें।",
		"prediction_failed":  "विश्लेषण विफल रहा। कृपया पुनः प्रयास करें।",
		"assistant_title":    "किसान एआई सहायक",
		"chat_placeholder":   "रोग, रोकथाम, खेती के बारे में पूछें...",
		"chat_send":          "भेजें",
		"chat_empty":         "अपनी पान की बेलों के बारे में कुछ भी पूछें।",
		"chat_typing":        "सहायक लिख रहा है...",
		"history_title":      "हाल के निदान",
		"history_empty":      "अभी तक कोई निदान नहीं।",
		"language":           "भाषा",
		"footer":             "किसानों के लिए निर्मित। निदान केवल सलाह है; गंभीर मामलों में कृषि अधिकारी से परामर्श करें।",
	},
	Telugu: {
		"title":              "తమలపాకు వ్యాధి గుర్తింపు AI",
		"subtitle":           "భారతీయ రైతుల కోసం ఏకీకృత AI పోర్టల్",
		"detect_title":       "ఆకు వ్యాధి గుర్తింపు",
		"upload_label":       "వక్క ఆకుల చిత్రాన్ని అప్లోడ్ చేయండి",
		"analyze_btn":        "విశ్లేషించండి",
		"analyzing":          "విశ్లేషిస్తోంది...",
		"disease":            "వ్యాధి",
		"confidence":         "నమ్మకం",
		"severity":           "తీవ్రత",
		"advice":             "సలహా",
		"other_predictions":  "ఇతర అవకాశాలు",
		"camera_btn":         "కెమెరా తెరవండి",
		"capture_btn":        "ఫోటో తీయండి",
		"stop_camera_btn":    "కెమెరా మూసివేయండి",
		"remove_btn":         "చిత్రాన్ని తొలగించండి",
		"camera_unavailable": "కెమెరా అందుబాటులో లేదు. దయచేసి చిత్రాన్ని అప్లోడ్ చేయండి.",
		"prediction_failed":  "విశ్లేషణ విఫలమైంది. దయచేసి మళ్లీ ప్రయత్నించండి.",
		"assistant_title":    "రైతు AI సహాయకుడు",
		"chat_placeholder":   "వ్యాధులు, నివారణ, సాగు గురించి అడగండి...",
		"chat_send":          "పంపండి",
		"chat_empty":         "మీ తమలపాకు తీగల గురించి ఏదైనా అడగండి.",
		"chat_typing":        "సహాయకుడు టైప్ చేస్తున్నాడు...",
		"history_title":      "ఇటీవలి నిర్ధారణలు",
		"history_empty":      "ఇంకా నిర్ధారణలు లేవు.",
		"language":           "భాష",
		"footer":             "రైతుల కోసం రూపొందించబడింది. నిర్ధారణలు సలహా మాత్రమే; తీవ్రమైన సందర్భాల్లో వ్యవసాయ అధికారిని సంప్రదించండి.",
	},
}
